package uow

import (
	"context"
	"errors"

	domainorder "equiprent/internal/domain/order"
	domainproduct "equiprent/internal/domain/product"
	domainquotation "equiprent/internal/domain/quotation"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

// UnitOfWork scopes repository access to one transaction boundary.
type UnitOfWork interface {
	Quotations() domainquotation.Repository
	Products() domainproduct.Repository
	Orders() domainorder.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that carry driver state (a Mongo session) in the context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

type ctxKey struct{}

func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok && unit != nil
}

// Bind attaches unit to ctx, letting the unit inject its own state first.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}
