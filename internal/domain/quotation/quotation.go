package quotation

import (
	"context"
	"errors"
	"strings"
	"time"

	"equiprent/internal/domain/shared/events"
	"equiprent/internal/domain/shared/money"
)

var (
	ErrNotFound          = errors.New("quotation: not found")
	ErrInvalidTransition = errors.New("quotation: invalid status transition")
	ErrNotDraft          = errors.New("quotation: only draft quotations can be changed")
	ErrNotOwned          = errors.New("quotation: not owned by actor")
	ErrCustomerRequired  = errors.New("quotation: customer id is required")
	ErrNumberRequired    = errors.New("quotation: quotation number is required")
	ErrDuplicateNumber   = errors.New("quotation: quotation number already used")
	ErrNegativeTotal     = errors.New("quotation: total amount cannot be negative")
	ErrNegativeDeposit   = errors.New("quotation: deposit amount cannot be negative")
	ErrValidityElapsed   = errors.New("quotation: validity period elapsed")
)

type ID string

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusConfirmed Status = "confirmed"
	StatusExpired   Status = "expired"
)

// ParseStatus accepts any casing; unknown values are rejected.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusDraft:
		return StatusDraft, true
	case StatusSent:
		return StatusSent, true
	case StatusConfirmed:
		return StatusConfirmed, true
	case StatusExpired:
		return StatusExpired, true
	default:
		return "", false
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusExpired
}

// Quotation is a customer's multi-line rental request. Lines keep cart order.
type Quotation struct {
	ID            ID
	Number        string
	CustomerID    string
	Status        Status
	Lines         []Line
	TotalAmount   money.Money
	DepositAmount money.Money
	Notes         string
	ValidUntil    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	events.EventRecorder
}

type ListFilter struct {
	CustomerID  string
	Statuses    []Status
	ValidBefore time.Time
	Limit       int
	Offset      int
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Quotation, error)
	Save(ctx context.Context, q *Quotation) error
	Delete(ctx context.Context, id ID) error
	List(ctx context.Context, filter ListFilter) ([]*Quotation, error)
}

type CreateParams struct {
	ID            ID
	Number        string
	CustomerID    string
	Lines         []Line
	TotalAmount   money.Money
	DepositAmount money.Money
	Notes         string
	ValidUntil    *time.Time
	CreatedAt     time.Time
}

// New builds a draft quotation. Totals are taken as given; they are priced by the caller.
func New(params CreateParams) (*Quotation, error) {
	customerID := strings.TrimSpace(params.CustomerID)
	if customerID == "" {
		return nil, ErrCustomerRequired
	}
	number := strings.TrimSpace(params.Number)
	if number == "" {
		return nil, ErrNumberRequired
	}
	if err := checkAmounts(params.TotalAmount, params.DepositAmount); err != nil {
		return nil, err
	}
	for i := range params.Lines {
		if err := params.Lines[i].checkShape(); err != nil {
			return nil, err
		}
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	q := &Quotation{
		ID:            params.ID,
		Number:        number,
		CustomerID:    customerID,
		Status:        StatusDraft,
		Lines:         cloneLines(params.Lines),
		TotalAmount:   params.TotalAmount,
		DepositAmount: depositOrZero(params.DepositAmount, params.TotalAmount.Currency),
		Notes:         strings.TrimSpace(params.Notes),
		ValidUntil:    utcPtr(params.ValidUntil),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	q.Record(Created{
		QuotationID: q.ID,
		Number:      q.Number,
		CustomerID:  q.CustomerID,
		Lines:       len(q.Lines),
		Total:       q.TotalAmount,
		At:          now,
	})
	return q, nil
}

type ReviseParams struct {
	Lines         []Line
	TotalAmount   money.Money
	DepositAmount money.Money
	Notes         string
	ValidUntil    *time.Time
}

// Revise replaces the editable content of a draft.
func (q *Quotation) Revise(params ReviseParams, now time.Time) error {
	if q.Status != StatusDraft {
		return ErrNotDraft
	}
	if err := checkAmounts(params.TotalAmount, params.DepositAmount); err != nil {
		return err
	}
	for i := range params.Lines {
		if err := params.Lines[i].checkShape(); err != nil {
			return err
		}
	}
	q.Lines = cloneLines(params.Lines)
	q.TotalAmount = params.TotalAmount
	q.DepositAmount = depositOrZero(params.DepositAmount, params.TotalAmount.Currency)
	q.Notes = strings.TrimSpace(params.Notes)
	if params.ValidUntil != nil {
		q.ValidUntil = utcPtr(params.ValidUntil)
	}
	q.touch(now)
	q.Record(Updated{QuotationID: q.ID, Lines: len(q.Lines), Total: q.TotalAmount, At: q.UpdatedAt})
	return nil
}

func (q *Quotation) Send(now time.Time) error {
	if q.Status != StatusDraft {
		return ErrInvalidTransition
	}
	q.Status = StatusSent
	q.touch(now)
	q.Record(Sent{QuotationID: q.ID, CustomerID: q.CustomerID, At: q.UpdatedAt})
	return nil
}

// Confirm is irreversible; the confirmed event carries everything an order needs.
func (q *Quotation) Confirm(now time.Time) error {
	if q.Status != StatusSent {
		return ErrInvalidTransition
	}
	if q.ValidUntil != nil && now.UTC().After(*q.ValidUntil) {
		return ErrValidityElapsed
	}
	q.Status = StatusConfirmed
	q.touch(now)
	q.Record(Confirmed{
		QuotationID: q.ID,
		Number:      q.Number,
		CustomerID:  q.CustomerID,
		Lines:       cloneLines(q.Lines),
		Total:       q.TotalAmount,
		Deposit:     q.DepositAmount,
		At:          q.UpdatedAt,
	})
	return nil
}

func (q *Quotation) Expire(now time.Time) error {
	if q.Status != StatusDraft && q.Status != StatusSent {
		return ErrInvalidTransition
	}
	q.Status = StatusExpired
	q.touch(now)
	q.Record(Expired{QuotationID: q.ID, At: q.UpdatedAt})
	return nil
}

// MarkDeleted records the deletion; the repository removes the document.
func (q *Quotation) MarkDeleted(now time.Time) error {
	if q.Status != StatusDraft {
		return ErrNotDraft
	}
	q.Record(Deleted{QuotationID: q.ID, At: now.UTC()})
	return nil
}

// IsDue reports whether the quotation outlived valid_until without reaching a terminal state.
func (q *Quotation) IsDue(now time.Time) bool {
	if q.Status.Terminal() || q.ValidUntil == nil {
		return false
	}
	return q.ValidUntil.Before(now.UTC())
}

// ManagedBy reports whether the actor may mutate the quotation: its customer or an admin.
func (q *Quotation) ManagedBy(actorID string, admin bool) bool {
	if admin {
		return true
	}
	actorID = strings.TrimSpace(actorID)
	return actorID != "" && actorID == q.CustomerID
}

func (q *Quotation) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	q.UpdatedAt = now.UTC()
}

func checkAmounts(total, deposit money.Money) error {
	if total.IsNegative() {
		return ErrNegativeTotal
	}
	if deposit.IsNegative() {
		return ErrNegativeDeposit
	}
	return nil
}

func depositOrZero(deposit money.Money, currency string) money.Money {
	if deposit.Currency == "" {
		return money.Zero(currency)
	}
	return deposit
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}
