package memory

import (
	"context"
	"sync"

	domainorder "equiprent/internal/domain/order"
	domainproduct "equiprent/internal/domain/product"
	domainquotation "equiprent/internal/domain/quotation"
)

// undoLog records how to revert each write made through a unit. Rollback
// replays it newest first; Commit drops it.
type undoLog struct {
	mu  sync.Mutex
	ops []func()
}

func (l *undoLog) push(op func()) {
	l.mu.Lock()
	l.ops = append(l.ops, op)
	l.mu.Unlock()
}

func (l *undoLog) revert() {
	l.mu.Lock()
	ops := l.ops
	l.ops = nil
	l.mu.Unlock()
	for i := len(ops) - 1; i >= 0; i-- {
		ops[i]()
	}
}

func (l *undoLog) discard() {
	l.mu.Lock()
	l.ops = nil
	l.mu.Unlock()
}

type unitQuotations struct {
	*QuotationRepository
	undo *undoLog
}

func (r unitQuotations) Save(ctx context.Context, q *domainquotation.Quotation) error {
	if q == nil {
		return r.QuotationRepository.Save(ctx, q)
	}
	prev := r.snapshot(q.ID)
	if err := r.QuotationRepository.Save(ctx, q); err != nil {
		return err
	}
	id := q.ID
	r.undo.push(func() { r.restore(id, prev) })
	return nil
}

func (r unitQuotations) Delete(ctx context.Context, id domainquotation.ID) error {
	prev := r.snapshot(id)
	if err := r.QuotationRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.undo.push(func() { r.restore(id, prev) })
	return nil
}

type unitProducts struct {
	*ProductRepository
	undo *undoLog
}

func (r unitProducts) Save(ctx context.Context, p *domainproduct.Product) error {
	if p == nil {
		return r.ProductRepository.Save(ctx, p)
	}
	prev := r.snapshot(p.ID)
	if err := r.ProductRepository.Save(ctx, p); err != nil {
		return err
	}
	id := p.ID
	r.undo.push(func() { r.restore(id, prev) })
	return nil
}

type unitOrders struct {
	*OrderRepository
	undo *undoLog
}

func (r unitOrders) Create(ctx context.Context, o *domainorder.Order) error {
	if err := r.OrderRepository.Create(ctx, o); err != nil {
		return err
	}
	id, quotationID := o.ID, o.QuotationID
	r.undo.push(func() { r.remove(id, quotationID) })
	return nil
}

func (r *QuotationRepository) snapshot(id domainquotation.ID) *domainquotation.Quotation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if q, ok := r.items[id]; ok {
		return cloneQuotation(q)
	}
	return nil
}

// restore puts back prev, or removes the quotation when prev is nil.
func (r *QuotationRepository) restore(id domainquotation.ID, prev *domainquotation.Quotation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.items[id]; ok && r.byNumber[cur.Number] == id {
		delete(r.byNumber, cur.Number)
	}
	if prev == nil {
		delete(r.items, id)
		return
	}
	r.items[id] = prev
	r.byNumber[prev.Number] = id
}

func (r *ProductRepository) snapshot(id domainproduct.ID) *domainproduct.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.items[id]; ok {
		return p.Clone()
	}
	return nil
}

func (r *ProductRepository) restore(id domainproduct.ID, prev *domainproduct.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev == nil {
		delete(r.items, id)
		return
	}
	r.items[id] = prev
}

func (r *OrderRepository) remove(id domainorder.ID, quotationID domainquotation.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	if r.byQuotation[quotationID] == id {
		delete(r.byQuotation, quotationID)
	}
}
