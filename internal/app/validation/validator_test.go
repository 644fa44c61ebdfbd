package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Items []item `json:"items" validate:"min=1,dive"`
}

type item struct {
	Quantity int `json:"quantity" validate:"gte=1"`
}

func TestStructValidator(t *testing.T) {
	v := New()

	require.NoError(t, v.Validate(context.Background(), sample{Name: "a", Items: []item{{Quantity: 1}}}))

	err := v.Validate(context.Background(), sample{Items: []item{{Quantity: 0}}})
	require.ErrorIs(t, err, ErrInvalidInput)
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	require.Len(t, inputErr.Fields, 2)
	assert.Equal(t, "name", inputErr.Fields[0].Field)
	assert.Equal(t, "required", inputErr.Fields[0].Rule)
	assert.Equal(t, "items[0].quantity", inputErr.Fields[1].Field)
	assert.Contains(t, err.Error(), "quantity failed gte=1")
}

func TestStructValidatorIgnoresNonStructs(t *testing.T) {
	assert.NoError(t, New().Validate(context.Background(), "plain"))
}
