package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	domainproduct "equiprent/internal/domain/product"
)

type ProductRepository struct {
	mu    sync.RWMutex
	items map[domainproduct.ID]*domainproduct.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{items: make(map[domainproduct.ID]*domainproduct.Product)}
}

func (r *ProductRepository) ByID(ctx context.Context, id domainproduct.ID) (*domainproduct.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, domainproduct.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *ProductRepository) Save(ctx context.Context, p *domainproduct.Product) error {
	if p == nil || p.ID == "" {
		return domainproduct.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = p.Clone()
	return nil
}

func (r *ProductRepository) List(ctx context.Context, filter domainproduct.ListFilter) ([]*domainproduct.Product, error) {
	r.mu.RLock()
	out := make([]*domainproduct.Product, 0, len(r.items))
	for _, p := range r.items {
		if filter.VendorID != "" && p.VendorID != filter.VendorID {
			continue
		}
		if c := strings.ToLower(strings.TrimSpace(filter.Category)); c != "" && p.Category != c {
			continue
		}
		if filter.PublishedOnly && !p.Published {
			continue
		}
		out = append(out, p.Clone())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return paginate(out, filter.Offset, filter.Limit), nil
}

var _ domainproduct.Repository = (*ProductRepository)(nil)
