package pricing

import (
	"errors"
	"math"
	"time"

	"equiprent/internal/domain/product"
	"equiprent/internal/domain/shared/daterange"
	"equiprent/internal/domain/shared/money"
)

// Upper bounds for a single line. Command validation enforces the same limits.
const (
	MaxQuantity      = 10_000
	MaxDurationValue = 10_000
	MaxWindow        = 10 * 366 * 24 * time.Hour
)

var (
	ErrInvalidQuantity = errors.New("pricing: quantity must be between 1 and 10000")
	ErrInvalidPeriods  = errors.New("pricing: duration value must be positive and at most 10000")
	ErrWindowTooLong   = errors.New("pricing: rental window cannot exceed 10 years")
	ErrCurrencyUnset   = errors.New("pricing: currency must be defined")
)

// LineRequest describes one cart line to be priced against a product.
type LineRequest struct {
	VariantID     string
	RateType      product.RateType
	DurationValue *float64
	Start         time.Time
	End           time.Time
	Quantity      int
}

// LineQuote is the price of one line fixed at quote time.
type LineQuote struct {
	Rate      money.Money
	Periods   float64
	UnitPrice money.Money
	Subtotal  money.Money
	Deposit   money.Money
}

// QuoteLine prices req from the product's table. When no duration value is given the
// rental window is measured in the rate's unit and rounded up; custom counts days.
func QuoteLine(p *product.Product, req LineRequest) (LineQuote, error) {
	if req.Quantity < 1 || req.Quantity > MaxQuantity {
		return LineQuote{}, ErrInvalidQuantity
	}
	rate, err := p.RateFor(req.VariantID, req.RateType)
	if err != nil {
		return LineQuote{}, err
	}
	if rate.Currency == "" {
		return LineQuote{}, ErrCurrencyUnset
	}
	periods, err := periodsFor(req)
	if err != nil {
		return LineQuote{}, err
	}
	unit, err := rate.Scale(periods)
	if err != nil {
		return LineQuote{}, err
	}
	qty := int64(req.Quantity)
	subtotal, err := unit.Multiply(qty)
	if err != nil {
		return LineQuote{}, err
	}
	deposit := p.SecurityDeposit
	if deposit.Currency == "" {
		deposit = money.Zero(rate.Currency)
	}
	if deposit, err = deposit.Multiply(qty); err != nil {
		return LineQuote{}, err
	}
	return LineQuote{
		Rate:      rate,
		Periods:   periods,
		UnitPrice: unit,
		Subtotal:  subtotal,
		Deposit:   deposit,
	}, nil
}

func periodsFor(req LineRequest) (float64, error) {
	if req.DurationValue != nil {
		if v := *req.DurationValue; math.IsNaN(v) || v <= 0 || v > MaxDurationValue {
			return 0, ErrInvalidPeriods
		}
		return *req.DurationValue, nil
	}
	w, err := daterange.New(req.Start, req.End)
	if err != nil {
		return 0, err
	}
	if w.Duration() > MaxWindow {
		return 0, ErrWindowTooLong
	}
	return float64(w.Periods(unitFor(req.RateType))), nil
}

func unitFor(kind product.RateType) daterange.Unit {
	switch kind {
	case product.RateHourly:
		return daterange.Hour
	case product.RateWeekly:
		return daterange.Week
	default:
		return daterange.Day
	}
}

// Totals is the quotation-level sum of priced lines.
type Totals struct {
	Total   money.Money
	Deposit money.Money
}

func Summarize(currency string, quotes ...LineQuote) (Totals, error) {
	if currency == "" && len(quotes) > 0 {
		currency = quotes[0].Subtotal.Currency
	}
	if currency == "" {
		return Totals{}, ErrCurrencyUnset
	}
	subtotals := make([]money.Money, 0, len(quotes))
	deposits := make([]money.Money, 0, len(quotes))
	for _, q := range quotes {
		subtotals = append(subtotals, q.Subtotal)
		deposits = append(deposits, q.Deposit)
	}
	total, err := money.Sum(currency, subtotals...)
	if err != nil {
		return Totals{}, err
	}
	deposit, err := money.Sum(currency, deposits...)
	if err != nil {
		return Totals{}, err
	}
	return Totals{Total: total, Deposit: deposit}, nil
}
