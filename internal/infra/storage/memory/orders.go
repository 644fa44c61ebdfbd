package memory

import (
	"context"
	"sort"
	"sync"

	domainorder "equiprent/internal/domain/order"
	domainquotation "equiprent/internal/domain/quotation"
)

type OrderRepository struct {
	mu          sync.RWMutex
	items       map[domainorder.ID]*domainorder.Order
	byQuotation map[domainquotation.ID]domainorder.ID
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		items:       make(map[domainorder.ID]*domainorder.Order),
		byQuotation: make(map[domainquotation.ID]domainorder.ID),
	}
}

func (r *OrderRepository) ByID(ctx context.Context, id domainorder.ID) (*domainorder.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.items[id]
	if !ok {
		return nil, domainorder.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *OrderRepository) ByQuotation(ctx context.Context, id domainquotation.ID) (*domainorder.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	orderID, ok := r.byQuotation[id]
	if !ok {
		return nil, domainorder.ErrNotFound
	}
	return cloneOrder(r.items[orderID]), nil
}

func (r *OrderRepository) Create(ctx context.Context, o *domainorder.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byQuotation[o.QuotationID]; exists {
		return domainorder.ErrAlreadyExists
	}
	r.items[o.ID] = cloneOrder(o)
	r.byQuotation[o.QuotationID] = o.ID
	return nil
}

func (r *OrderRepository) List(ctx context.Context, filter domainorder.ListFilter) ([]*domainorder.Order, error) {
	r.mu.RLock()
	out := make([]*domainorder.Order, 0, len(r.items))
	for _, o := range r.items {
		if filter.CustomerID != "" && o.CustomerID != filter.CustomerID {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.Offset, filter.Limit), nil
}

func cloneOrder(o *domainorder.Order) *domainorder.Order {
	cp := *o
	cp.Lines = append([]domainquotation.Line(nil), o.Lines...)
	return &cp
}

var _ domainorder.Repository = (*OrderRepository)(nil)
