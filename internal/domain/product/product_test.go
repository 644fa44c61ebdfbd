package product

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equiprent/internal/domain/shared/money"
)

func baseParams() Params {
	return Params{
		Name:     "  Scissor lift ",
		Category: "Lifts",
		Stock:    2,
		Pricing: Pricing{
			"Daily":    money.Must(9000, "EUR"),
			RateWeekly: money.Must(40000, "EUR"),
		},
	}
}

func TestNewNormalisesAndDefaultsDeposit(t *testing.T) {
	p, err := New(CreateParams{ID: "p1", VendorID: "v1", Params: baseParams(), Now: time.Now()})
	require.NoError(t, err)

	assert.Equal(t, "Scissor lift", p.Name)
	assert.Equal(t, "lifts", p.Category)
	assert.Equal(t, money.Zero("EUR"), p.SecurityDeposit)
	assert.Contains(t, p.Pricing, RateDaily)
	assert.False(t, p.Published)
	assert.Equal(t, "EUR", p.Currency())
}

func TestNewRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateParams)
		want   error
	}{
		{name: "vendor", mutate: func(c *CreateParams) { c.VendorID = "" }, want: ErrVendorRequired},
		{name: "name", mutate: func(c *CreateParams) { c.Name = " " }, want: ErrNameRequired},
		{name: "no rates", mutate: func(c *CreateParams) { c.Pricing = nil }, want: ErrPricingRequired},
		{name: "zero rate", mutate: func(c *CreateParams) { c.Pricing = Pricing{RateDaily: money.Zero("EUR")} }, want: ErrInvalidRate},
		{name: "unknown rate", mutate: func(c *CreateParams) { c.Pricing = Pricing{"monthly": money.Must(1, "EUR")} }, want: ErrUnknownRateType},
		{name: "mixed currency", mutate: func(c *CreateParams) { c.Pricing[RateHourly] = money.Must(100, "USD") }, want: ErrCurrencyMismatch},
		{name: "stock", mutate: func(c *CreateParams) { c.Stock = -1 }, want: ErrNegativeStock},
		{name: "deposit", mutate: func(c *CreateParams) { c.SecurityDeposit = money.Must(-1, "EUR") }, want: ErrNegativeDeposit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := CreateParams{ID: "p1", VendorID: "v1", Params: baseParams()}
			tc.mutate(&params)
			_, err := New(params)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRateFor(t *testing.T) {
	params := baseParams()
	params.Variants = []Variant{{ID: "tall", Pricing: Pricing{RateWeekly: money.Must(50000, "EUR")}}}
	p, err := New(CreateParams{ID: "p1", VendorID: "v1", Params: params})
	require.NoError(t, err)

	rate, err := p.RateFor("", RateDaily)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), rate.Amount)

	rate, err = p.RateFor("tall", RateWeekly)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), rate.Amount)

	rate, err = p.RateFor("", RateCustom)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), rate.Amount)

	_, err = p.RateFor("", RateHourly)
	assert.ErrorIs(t, err, ErrRateMissing)
}

func TestCloneIsDeep(t *testing.T) {
	p, err := New(CreateParams{ID: "p1", VendorID: "v1", Params: baseParams()})
	require.NoError(t, err)
	p.AddImage("https://cdn/x.png", time.Now())

	cp := p.Clone()
	cp.Pricing[RateDaily] = money.Must(1, "EUR")
	cp.Images[0] = "changed"

	assert.Equal(t, int64(9000), p.Pricing[RateDaily].Amount)
	assert.Equal(t, "https://cdn/x.png", p.Images[0])
}
