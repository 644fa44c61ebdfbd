package quotation

import (
	"errors"
	"strings"
	"time"

	"equiprent/internal/domain/shared/daterange"
	"equiprent/internal/domain/shared/money"
)

var (
	ErrProductRequired     = errors.New("quotation: line product id is required")
	ErrInvalidQuantity     = errors.New("quotation: line quantity must be at least 1")
	ErrInvalidDurationType = errors.New("quotation: line duration type is invalid")
	ErrUnitPriceRequired   = errors.New("quotation: line unit price is required")
)

type DurationType string

const (
	DurationHourly DurationType = "hourly"
	DurationDaily  DurationType = "daily"
	DurationWeekly DurationType = "weekly"
	DurationCustom DurationType = "custom"
)

func ParseDurationType(raw string) (DurationType, bool) {
	switch DurationType(strings.ToLower(strings.TrimSpace(raw))) {
	case DurationHourly:
		return DurationHourly, true
	case DurationDaily:
		return DurationDaily, true
	case DurationWeekly:
		return DurationWeekly, true
	case DurationCustom:
		return DurationCustom, true
	default:
		return "", false
	}
}

// Line is one product/variant rental entry. UnitPrice and Subtotal are fixed at quote time.
type Line struct {
	ProductID     string       `json:"product_id"`
	VariantID     string       `json:"variant_id,omitempty"`
	Quantity      int          `json:"quantity"`
	RentalStart   time.Time    `json:"rental_start_date"`
	RentalEnd     time.Time    `json:"rental_end_date"`
	DurationType  DurationType `json:"rental_duration_type"`
	DurationValue *float64     `json:"rental_duration_value,omitempty"`
	UnitPrice     money.Money  `json:"unit_price"`
	Subtotal      money.Money  `json:"subtotal"`
}

// Window returns the rental interval without validating it.
func (l Line) Window() daterange.Window {
	return daterange.Window{Start: l.RentalStart, End: l.RentalEnd}
}

func (l Line) checkShape() error {
	if strings.TrimSpace(l.ProductID) == "" {
		return ErrProductRequired
	}
	if l.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if _, ok := ParseDurationType(string(l.DurationType)); !ok {
		return ErrInvalidDurationType
	}
	if l.UnitPrice.Currency == "" {
		return ErrUnitPriceRequired
	}
	return nil
}

func cloneLines(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	for i, l := range lines {
		if l.DurationValue != nil {
			v := *l.DurationValue
			l.DurationValue = &v
		}
		l.RentalStart = l.RentalStart.UTC()
		l.RentalEnd = l.RentalEnd.UTC()
		out[i] = l
	}
	return out
}
