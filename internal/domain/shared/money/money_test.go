package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiply(t *testing.T) {
	got, err := Must(1500, "usd").Multiply(3)
	require.NoError(t, err)
	assert.Equal(t, Must(4500, "USD"), got)

	_, err = Must(math.MaxInt64/2+1, "USD").Multiply(2)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = Must(-1, "USD").Multiply(2)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	got, err = Must(math.MaxInt64, "USD").Multiply(1)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got.Amount)
}

func TestScale(t *testing.T) {
	got, err := Must(15000, "USD").Scale(1.5)
	require.NoError(t, err)
	assert.Equal(t, int64(22500), got.Amount)

	for _, factor := range []float64{1e300, math.Inf(1), math.NaN()} {
		_, err := Must(15000, "USD").Scale(factor)
		assert.ErrorIs(t, err, ErrOverflow)
	}
}

func TestAddAndSumDetectOverflow(t *testing.T) {
	_, err := Must(math.MaxInt64, "USD").Add(Must(1, "USD"))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = Must(math.MinInt64, "USD").Sub(Must(1, "USD"))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = Sum("USD", Must(math.MaxInt64-1, "USD"), Must(1, "USD"), Must(1, "USD"))
	assert.ErrorIs(t, err, ErrOverflow)

	total, err := Sum("USD", Must(1000, "USD"), Must(2500, "USD"))
	require.NoError(t, err)
	assert.Equal(t, int64(3500), total.Amount)

	_, err = Must(1, "USD").Add(Must(1, "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}
