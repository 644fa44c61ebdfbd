package orders

import (
	"context"

	"equiprent/internal/app/actor"
	"equiprent/internal/app/dto"
	"equiprent/internal/app/handlers/support"
	"equiprent/internal/app/queries"
	"equiprent/internal/app/uow"
	domainorder "equiprent/internal/domain/order"
)

const (
	listOrdersKey = "orders.list"
	getOrderKey   = "orders.get"
)

type ListOrdersQuery struct {
	Limit  int `validate:"gte=0,lte=200"`
	Offset int `validate:"gte=0"`
}

func (ListOrdersQuery) Key() string { return listOrdersKey }

type ListOrdersHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListOrdersHandler) Handle(ctx context.Context, q ListOrdersQuery) (*dto.OrderList, error) {
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
	filter := domainorder.ListFilter{Limit: q.Limit, Offset: q.Offset}
	if filter.Limit == 0 {
		filter.Limit = 50
	}
	if !who.IsAdmin() {
		filter.CustomerID = who.UserID
	}
	items, err := unit.Orders().List(execCtx, filter)
	if err != nil {
		return nil, err
	}
	result := dto.MapOrderList(items)
	return &result, nil
}

type GetOrderQuery struct {
	OrderID string `validate:"required"`
}

func (GetOrderQuery) Key() string { return getOrderKey }

type GetOrderHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetOrderHandler) Handle(ctx context.Context, q GetOrderQuery) (*dto.Order, error) {
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
	o, err := unit.Orders().ByID(execCtx, domainorder.ID(q.OrderID))
	if err != nil {
		return nil, err
	}
	if o.CustomerID != who.UserID && !who.IsAdmin() {
		return nil, domainorder.ErrNotFound
	}
	result := dto.MapOrder(o)
	return &result, nil
}

var (
	_ queries.Handler[ListOrdersQuery, *dto.OrderList] = (*ListOrdersHandler)(nil)
	_ queries.Handler[GetOrderQuery, *dto.Order]       = (*GetOrderHandler)(nil)
)
