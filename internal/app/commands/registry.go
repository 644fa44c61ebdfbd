package commands

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type rawHandler func(ctx context.Context, cmd Command) (any, error)

// Registry is the terminal bus: it routes each command to the handler registered for its key.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]rawHandler)}
}

func (r *Registry) register(key string, h rawHandler) {
	if key == "" {
		panic("commands: empty key registration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.handlers[key]; dup {
		panic("commands: duplicate registration for " + key)
	}
	r.handlers[key] = h
}

func (r *Registry) Dispatch(ctx context.Context, cmd Command) (any, error) {
	if cmd == nil {
		return nil, ErrInvalidCommand
	}
	r.mu.RLock()
	h, ok := r.handlers[cmd.Key()]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, cmd.Key())
	}
	return h(ctx, cmd)
}

// Keys lists registered command keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Register binds a typed handler to key.
func Register[C Command, R any](r *Registry, key string, handler Handler[C, R]) {
	if r == nil {
		panic("commands: nil registry")
	}
	r.register(key, func(ctx context.Context, raw Command) (any, error) {
		cmd, ok := raw.(C)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCommand, key)
		}
		return handler.Handle(ctx, cmd)
	})
}
