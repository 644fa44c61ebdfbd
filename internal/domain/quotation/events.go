package quotation

import (
	"time"

	"equiprent/internal/domain/shared/money"
)

const (
	EventCreated   = "quotation.created"
	EventUpdated   = "quotation.updated"
	EventSent      = "quotation.sent"
	EventConfirmed = "quotation.confirmed"
	EventExpired   = "quotation.expired"
	EventDeleted   = "quotation.deleted"
)

type Created struct {
	QuotationID ID          `json:"quotation_id"`
	Number      string      `json:"quotation_number"`
	CustomerID  string      `json:"customer_id"`
	Lines       int         `json:"lines"`
	Total       money.Money `json:"total_amount"`
	At          time.Time   `json:"at"`
}

func (e Created) EventName() string     { return EventCreated }
func (e Created) AggregateID() string   { return string(e.QuotationID) }
func (e Created) OccurredAt() time.Time { return e.At }

type Updated struct {
	QuotationID ID          `json:"quotation_id"`
	Lines       int         `json:"lines"`
	Total       money.Money `json:"total_amount"`
	At          time.Time   `json:"at"`
}

func (e Updated) EventName() string     { return EventUpdated }
func (e Updated) AggregateID() string   { return string(e.QuotationID) }
func (e Updated) OccurredAt() time.Time { return e.At }

type Sent struct {
	QuotationID ID        `json:"quotation_id"`
	CustomerID  string    `json:"customer_id"`
	At          time.Time `json:"at"`
}

func (e Sent) EventName() string     { return EventSent }
func (e Sent) AggregateID() string   { return string(e.QuotationID) }
func (e Sent) OccurredAt() time.Time { return e.At }

// Confirmed is consumed by order creation.
type Confirmed struct {
	QuotationID ID          `json:"quotation_id"`
	Number      string      `json:"quotation_number"`
	CustomerID  string      `json:"customer_id"`
	Lines       []Line      `json:"lines"`
	Total       money.Money `json:"total_amount"`
	Deposit     money.Money `json:"deposit_amount"`
	At          time.Time   `json:"at"`
}

func (e Confirmed) EventName() string     { return EventConfirmed }
func (e Confirmed) AggregateID() string   { return string(e.QuotationID) }
func (e Confirmed) OccurredAt() time.Time { return e.At }

type Expired struct {
	QuotationID ID        `json:"quotation_id"`
	At          time.Time `json:"at"`
}

func (e Expired) EventName() string     { return EventExpired }
func (e Expired) AggregateID() string   { return string(e.QuotationID) }
func (e Expired) OccurredAt() time.Time { return e.At }

type Deleted struct {
	QuotationID ID        `json:"quotation_id"`
	At          time.Time `json:"at"`
}

func (e Deleted) EventName() string     { return EventDeleted }
func (e Deleted) AggregateID() string   { return string(e.QuotationID) }
func (e Deleted) OccurredAt() time.Time { return e.At }
