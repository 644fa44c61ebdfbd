package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingCommand struct{ Value string }

func (pingCommand) Key() string { return "test.ping" }

type otherCommand struct{}

func (otherCommand) Key() string { return "test.other" }

func TestRegistryDispatchTyped(t *testing.T) {
	reg := NewRegistry()
	Register[pingCommand, string](reg, "test.ping", HandlerFunc[pingCommand, string](func(_ context.Context, cmd pingCommand) (string, error) {
		return "pong:" + cmd.Value, nil
	}))

	out, err := Dispatch[pingCommand, string](context.Background(), reg, pingCommand{Value: "a"})
	require.NoError(t, err)
	assert.Equal(t, "pong:a", out)

	_, err = Dispatch[pingCommand, int](context.Background(), reg, pingCommand{})
	assert.ErrorIs(t, err, ErrResultType)

	_, err = reg.Dispatch(context.Background(), otherCommand{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	assert.Equal(t, []string{"test.ping"}, reg.Keys())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	h := HandlerFunc[pingCommand, string](func(context.Context, pingCommand) (string, error) { return "", nil })
	Register[pingCommand, string](reg, "test.ping", h)
	assert.Panics(t, func() { Register[pingCommand, string](reg, "test.ping", h) })
}

func TestDispatchNilBus(t *testing.T) {
	_, err := Dispatch[pingCommand, string](context.Background(), nil, pingCommand{})
	assert.ErrorIs(t, err, ErrNilBus)
}
