package dto

import (
	"time"

	domainquotation "equiprent/internal/domain/quotation"
	"equiprent/internal/domain/shared/money"
)

type QuotationLine struct {
	ProductID     string      `json:"product_id"`
	VariantID     string      `json:"variant_id,omitempty"`
	Quantity      int         `json:"quantity"`
	RentalStart   time.Time   `json:"rental_start_date"`
	RentalEnd     time.Time   `json:"rental_end_date"`
	DurationType  string      `json:"rental_duration_type"`
	DurationValue *float64    `json:"rental_duration_value,omitempty"`
	UnitPrice     money.Money `json:"unit_price"`
	Subtotal      money.Money `json:"subtotal"`
}

type Quotation struct {
	ID            string          `json:"id"`
	Number        string          `json:"quotation_number"`
	CustomerID    string          `json:"customer_id"`
	Status        string          `json:"status"`
	Lines         []QuotationLine `json:"lines"`
	TotalAmount   money.Money     `json:"total_amount"`
	DepositAmount money.Money     `json:"deposit_amount"`
	Notes         string          `json:"notes,omitempty"`
	ValidUntil    *time.Time      `json:"valid_until,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type QuotationList struct {
	Items []Quotation `json:"items"`
	Total int         `json:"total"`
}

func MapQuotationLines(lines []domainquotation.Line) []QuotationLine {
	out := make([]QuotationLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, QuotationLine{
			ProductID:     l.ProductID,
			VariantID:     l.VariantID,
			Quantity:      l.Quantity,
			RentalStart:   l.RentalStart,
			RentalEnd:     l.RentalEnd,
			DurationType:  string(l.DurationType),
			DurationValue: l.DurationValue,
			UnitPrice:     l.UnitPrice,
			Subtotal:      l.Subtotal,
		})
	}
	return out
}

func MapQuotation(q *domainquotation.Quotation) Quotation {
	if q == nil {
		return Quotation{}
	}
	return Quotation{
		ID:            string(q.ID),
		Number:        q.Number,
		CustomerID:    q.CustomerID,
		Status:        string(q.Status),
		Lines:         MapQuotationLines(q.Lines),
		TotalAmount:   q.TotalAmount,
		DepositAmount: q.DepositAmount,
		Notes:         q.Notes,
		ValidUntil:    q.ValidUntil,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

func MapQuotationList(items []*domainquotation.Quotation) QuotationList {
	out := QuotationList{Items: make([]Quotation, 0, len(items))}
	for _, q := range items {
		out.Items = append(out.Items, MapQuotation(q))
	}
	out.Total = len(out.Items)
	return out
}
