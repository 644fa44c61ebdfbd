package memory

import (
	"context"
	"sort"
	"sync"

	domainquotation "equiprent/internal/domain/quotation"
)

// QuotationRepository keeps quotations in a map. Every Save replaces the whole aggregate
// under one lock, so a quotation is written completely or not at all.
type QuotationRepository struct {
	mu       sync.RWMutex
	items    map[domainquotation.ID]*domainquotation.Quotation
	byNumber map[string]domainquotation.ID
}

func NewQuotationRepository() *QuotationRepository {
	return &QuotationRepository{
		items:    make(map[domainquotation.ID]*domainquotation.Quotation),
		byNumber: make(map[string]domainquotation.ID),
	}
}

func (r *QuotationRepository) ByID(ctx context.Context, id domainquotation.ID) (*domainquotation.Quotation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.items[id]
	if !ok {
		return nil, domainquotation.ErrNotFound
	}
	return cloneQuotation(q), nil
}

// Save validates q before touching the map.
func (r *QuotationRepository) Save(ctx context.Context, q *domainquotation.Quotation) error {
	if q == nil || q.ID == "" {
		return domainquotation.ErrNotFound
	}
	if err := domainquotation.Validate(q); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.byNumber[q.Number]; ok && owner != q.ID {
		return domainquotation.ErrDuplicateNumber
	}
	stored := cloneQuotation(q)
	if prev, ok := r.items[q.ID]; ok {
		stored.Version = prev.Version + 1
		if prev.Number != q.Number {
			delete(r.byNumber, prev.Number)
		}
	} else {
		stored.Version = 1
	}
	q.Version = stored.Version
	r.items[q.ID] = stored
	r.byNumber[q.Number] = q.ID
	return nil
}

func (r *QuotationRepository) Delete(ctx context.Context, id domainquotation.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.items[id]
	if !ok {
		return domainquotation.ErrNotFound
	}
	delete(r.byNumber, q.Number)
	delete(r.items, id)
	return nil
}

// List orders by creation time, newest first.
func (r *QuotationRepository) List(ctx context.Context, filter domainquotation.ListFilter) ([]*domainquotation.Quotation, error) {
	r.mu.RLock()
	matches := make([]*domainquotation.Quotation, 0, len(r.items))
	for _, q := range r.items {
		if matchesQuotation(q, filter) {
			matches = append(matches, cloneQuotation(q))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return paginate(matches, filter.Offset, filter.Limit), nil
}

func matchesQuotation(q *domainquotation.Quotation, f domainquotation.ListFilter) bool {
	if f.CustomerID != "" && q.CustomerID != f.CustomerID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if q.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.ValidBefore.IsZero() {
		if q.ValidUntil == nil || !q.ValidUntil.Before(f.ValidBefore) {
			return false
		}
	}
	return true
}

func cloneQuotation(q *domainquotation.Quotation) *domainquotation.Quotation {
	cp := &domainquotation.Quotation{
		ID:            q.ID,
		Number:        q.Number,
		CustomerID:    q.CustomerID,
		Status:        q.Status,
		Lines:         make([]domainquotation.Line, len(q.Lines)),
		TotalAmount:   q.TotalAmount,
		DepositAmount: q.DepositAmount,
		Notes:         q.Notes,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
		Version:       q.Version,
	}
	for i, l := range q.Lines {
		if l.DurationValue != nil {
			v := *l.DurationValue
			l.DurationValue = &v
		}
		cp.Lines[i] = l
	}
	if q.ValidUntil != nil {
		v := *q.ValidUntil
		cp.ValidUntil = &v
	}
	return cp
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ domainquotation.Repository = (*QuotationRepository)(nil)
