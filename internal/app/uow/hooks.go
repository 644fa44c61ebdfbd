package uow

import (
	"context"
	"sync"
)

// Hooks collects callbacks that must only observe committed state, such as
// cache invalidation.
type Hooks struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

type hooksKey struct{}

// WithHooks attaches a fresh hook list to ctx.
func WithHooks(ctx context.Context) (context.Context, *Hooks) {
	h := &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

// AfterCommit defers fn until the surrounding unit commits. Outside a unit it
// runs immediately; after a rollback it never runs.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	h, ok := ctx.Value(hooksKey{}).(*Hooks)
	if !ok || h == nil {
		fn(ctx)
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

// Run invokes the registered callbacks in order and clears the list.
func (h *Hooks) Run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}
