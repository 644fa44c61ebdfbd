package dto

import (
	"time"

	domainorder "equiprent/internal/domain/order"
	"equiprent/internal/domain/shared/money"
)

type Order struct {
	ID              string          `json:"id"`
	QuotationID     string          `json:"quotation_id"`
	QuotationNumber string          `json:"quotation_number"`
	CustomerID      string          `json:"customer_id"`
	Status          string          `json:"status"`
	Lines           []QuotationLine `json:"lines"`
	Total           money.Money     `json:"total_amount"`
	Deposit         money.Money     `json:"deposit_amount"`
	CreatedAt       time.Time       `json:"created_at"`
}

type OrderList struct {
	Items []Order `json:"items"`
	Total int     `json:"total"`
}

func MapOrder(o *domainorder.Order) Order {
	if o == nil {
		return Order{}
	}
	return Order{
		ID:              string(o.ID),
		QuotationID:     string(o.QuotationID),
		QuotationNumber: o.QuotationNumber,
		CustomerID:      o.CustomerID,
		Status:          string(o.Status),
		Lines:           MapQuotationLines(o.Lines),
		Total:           o.Total,
		Deposit:         o.Deposit,
		CreatedAt:       o.CreatedAt,
	}
}

func MapOrderList(items []*domainorder.Order) OrderList {
	out := OrderList{Items: make([]Order, 0, len(items))}
	for _, o := range items {
		out.Items = append(out.Items, MapOrder(o))
	}
	out.Total = len(out.Items)
	return out
}
