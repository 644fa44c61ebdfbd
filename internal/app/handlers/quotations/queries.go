package quotations

import (
	"context"

	"equiprent/internal/app/actor"
	"equiprent/internal/app/dto"
	"equiprent/internal/app/handlers/support"
	"equiprent/internal/app/queries"
	"equiprent/internal/app/uow"
	domainquotation "equiprent/internal/domain/quotation"
)

const (
	getQuotationKey   = "quotations.get"
	listQuotationsKey = "quotations.list"
)

type GetQuotationQuery struct {
	QuotationID string `validate:"required"`
}

func (GetQuotationQuery) Key() string { return getQuotationKey }

type GetQuotationHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetQuotationHandler) Handle(ctx context.Context, q GetQuotationQuery) (*dto.Quotation, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	found, _, err := loadManaged(execCtx, unit, q.QuotationID)
	if err != nil {
		return nil, err
	}
	result := dto.MapQuotation(found)
	return &result, nil
}

// ListQuotationsQuery lists the actor's quotations; admins see everyone's.
type ListQuotationsQuery struct {
	Status string `validate:"omitempty,oneof=draft sent confirmed expired"`
	Limit  int    `validate:"gte=0,lte=200"`
	Offset int    `validate:"gte=0"`
}

func (ListQuotationsQuery) Key() string { return listQuotationsKey }

type ListQuotationsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListQuotationsHandler) Handle(ctx context.Context, q ListQuotationsQuery) (*dto.QuotationList, error) {
	who, ok := actor.FromContext(ctx)
	if !ok {
		return nil, actor.ErrUnauthenticated
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	filter := domainquotation.ListFilter{Limit: q.Limit, Offset: q.Offset}
	if filter.Limit == 0 {
		filter.Limit = 50
	}
	if !who.IsAdmin() {
		filter.CustomerID = who.UserID
	}
	if status, ok := domainquotation.ParseStatus(q.Status); ok {
		filter.Statuses = []domainquotation.Status{status}
	}
	items, err := unit.Quotations().List(execCtx, filter)
	if err != nil {
		return nil, err
	}
	result := dto.MapQuotationList(items)
	return &result, nil
}

var (
	_ queries.Handler[GetQuotationQuery, *dto.Quotation]       = (*GetQuotationHandler)(nil)
	_ queries.Handler[ListQuotationsQuery, *dto.QuotationList] = (*ListQuotationsHandler)(nil)
)
