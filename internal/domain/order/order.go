package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"equiprent/internal/domain/quotation"
	"equiprent/internal/domain/shared/money"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrQuotationRequired = errors.New("order: quotation id is required")
	ErrCustomerRequired  = errors.New("order: customer id is required")
	ErrAlreadyExists     = errors.New("order: already exists for quotation")
)

type ID string

type Status string

const StatusPending Status = "pending"

// Order is created once per confirmed quotation.
type Order struct {
	ID              ID
	QuotationID     quotation.ID
	QuotationNumber string
	CustomerID      string
	Lines           []quotation.Line
	Total           money.Money
	Deposit         money.Money
	Status          Status
	CreatedAt       time.Time
}

type ListFilter struct {
	CustomerID string
	Limit      int
	Offset     int
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Order, error)
	ByQuotation(ctx context.Context, id quotation.ID) (*Order, error)
	// Create fails with ErrAlreadyExists when the quotation already has an order.
	Create(ctx context.Context, o *Order) error
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
}

// IDFor derives the order id from its quotation so replays land on the same order.
func IDFor(id quotation.ID) ID {
	return ID("ord-" + string(id))
}

func FromConfirmed(ev quotation.Confirmed) (*Order, error) {
	if strings.TrimSpace(string(ev.QuotationID)) == "" {
		return nil, ErrQuotationRequired
	}
	if strings.TrimSpace(ev.CustomerID) == "" {
		return nil, ErrCustomerRequired
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return &Order{
		ID:              IDFor(ev.QuotationID),
		QuotationID:     ev.QuotationID,
		QuotationNumber: ev.Number,
		CustomerID:      ev.CustomerID,
		Lines:           append([]quotation.Line(nil), ev.Lines...),
		Total:           ev.Total,
		Deposit:         ev.Deposit,
		Status:          StatusPending,
		CreatedAt:       at.UTC(),
	}, nil
}
