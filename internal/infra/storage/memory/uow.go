package memory

import (
	"context"
	"errors"
	"sync"

	"equiprent/internal/app/outbox"
	"equiprent/internal/app/uow"
	domainorder "equiprent/internal/domain/order"
	domainproduct "equiprent/internal/domain/product"
	domainquotation "equiprent/internal/domain/quotation"
)

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory wires the in-memory repositories into a unit-of-work boundary. Writes through the
// package's own repositories are applied immediately and undone on rollback; outbox records
// are staged until commit. Concurrent units can observe uncommitted writes.
type Factory struct {
	QuotationsRepo domainquotation.Repository
	ProductsRepo   domainproduct.Repository
	OrdersRepo     domainorder.Repository
	Outbox         *Outbox
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.QuotationsRepo == nil || f.ProductsRepo == nil || f.OrdersRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	u := &Unit{
		quotations: f.QuotationsRepo,
		products:   f.ProductsRepo,
		orders:     f.OrdersRepo,
		outbox:     f.Outbox,
		readOnly:   opts.ReadOnly,
		undo:       &undoLog{},
	}
	if repo, ok := f.QuotationsRepo.(*QuotationRepository); ok {
		u.quotations = unitQuotations{QuotationRepository: repo, undo: u.undo}
	}
	if repo, ok := f.ProductsRepo.(*ProductRepository); ok {
		u.products = unitProducts{ProductRepository: repo, undo: u.undo}
	}
	if repo, ok := f.OrdersRepo.(*OrderRepository); ok {
		u.orders = unitOrders{OrderRepository: repo, undo: u.undo}
	}
	return u, nil
}

type Unit struct {
	quotations domainquotation.Repository
	products   domainproduct.Repository
	orders     domainorder.Repository
	outbox     *Outbox
	readOnly   bool
	undo       *undoLog

	mu     sync.Mutex
	staged []outbox.EventRecord
}

func (u *Unit) Quotations() domainquotation.Repository { return u.quotations }
func (u *Unit) Products() domainproduct.Repository     { return u.products }
func (u *Unit) Orders() domainorder.Repository         { return u.orders }

func (u *Unit) stage(rec outbox.EventRecord) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.staged = append(u.staged, rec)
}

// Commit keeps the applied writes and releases staged outbox records for delivery on the
// next Flush.
func (u *Unit) Commit(ctx context.Context) error {
	u.undo.discard()
	u.mu.Lock()
	staged := u.staged
	u.staged = nil
	u.mu.Unlock()
	if u.outbox != nil && len(staged) > 0 {
		u.outbox.release(staged)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.undo.revert()
	u.mu.Lock()
	defer u.mu.Unlock()
	u.staged = nil
	return nil
}

var (
	_ uow.UoWFactory = Factory{}
	_ uow.UnitOfWork = (*Unit)(nil)
)
