package quotations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"equiprent/internal/app/actor"
	"equiprent/internal/app/policies"
	"equiprent/internal/app/uow"
	domainpricing "equiprent/internal/domain/pricing"
	domainproduct "equiprent/internal/domain/product"
	domainquotation "equiprent/internal/domain/quotation"
)

var ErrProductUnavailable = errors.New("quotations: product is not available for rent")

// LineInput is one requested cart line before pricing.
type LineInput struct {
	ProductID     string    `json:"product_id" validate:"required"`
	VariantID     string    `json:"variant_id"`
	Quantity      int       `json:"quantity" validate:"gte=1,lte=10000"`
	RentalStart   time.Time `json:"rental_start_date" validate:"required"`
	RentalEnd     time.Time `json:"rental_end_date" validate:"required"`
	DurationType  string    `json:"rental_duration_type" validate:"required,oneof=hourly daily weekly custom"`
	DurationValue *float64  `json:"rental_duration_value" validate:"omitempty,gt=0,lte=10000"`
}

// Metrics receives quotation outcomes. Nil disables reporting.
type Metrics interface {
	ValidationFailed()
	Transitioned(from, to domainquotation.Status)
}

// NumberFunc generates quotation numbers.
type NumberFunc func(now time.Time) string

// DefaultNumber yields QT-YYYYMMDD-XXXXXX.
func DefaultNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("QT-%s-%s", now.UTC().Format("20060102"), suffix)
}

func toDomainLines(inputs []LineInput) []domainquotation.Line {
	lines := make([]domainquotation.Line, 0, len(inputs))
	for _, in := range inputs {
		kind, _ := domainquotation.ParseDurationType(in.DurationType)
		lines = append(lines, domainquotation.Line{
			ProductID:     strings.TrimSpace(in.ProductID),
			VariantID:     strings.TrimSpace(in.VariantID),
			Quantity:      in.Quantity,
			RentalStart:   in.RentalStart.UTC(),
			RentalEnd:     in.RentalEnd.UTC(),
			DurationType:  kind,
			DurationValue: in.DurationValue,
		})
	}
	return lines
}

// pricer fixes unit_price and subtotal of every line from the product table.
type pricer struct {
	Pricing policies.PricingPort
	Catalog policies.ProductCatalog
}

type pricedLines struct {
	Lines  []domainquotation.Line
	Totals domainpricing.Totals
}

func (p pricer) price(ctx context.Context, unit uow.UnitOfWork, lines []domainquotation.Line) (pricedLines, error) {
	pricing := p.Pricing
	if pricing == nil {
		pricing = policies.TablePricing{}
	}
	quotes := make([]domainpricing.LineQuote, 0, len(lines))
	currency := ""
	out := make([]domainquotation.Line, len(lines))
	for i, line := range lines {
		product, err := p.product(ctx, unit, domainproduct.ID(line.ProductID))
		if err != nil {
			return pricedLines{}, err
		}
		if !product.Published {
			return pricedLines{}, fmt.Errorf("%w: %s", ErrProductUnavailable, line.ProductID)
		}
		quote, err := pricing.Quote(ctx, product, domainpricing.LineRequest{
			VariantID:     line.VariantID,
			RateType:      domainproduct.RateType(line.DurationType),
			DurationValue: line.DurationValue,
			Start:         line.RentalStart,
			End:           line.RentalEnd,
			Quantity:      line.Quantity,
		})
		if err != nil {
			return pricedLines{}, err
		}
		if currency == "" {
			currency = quote.Subtotal.Currency
		}
		line.UnitPrice = quote.UnitPrice
		line.Subtotal = quote.Subtotal
		out[i] = line
		quotes = append(quotes, quote)
	}
	totals, err := domainpricing.Summarize(currency, quotes...)
	if err != nil {
		return pricedLines{}, err
	}
	return pricedLines{Lines: out, Totals: totals}, nil
}

func (p pricer) product(ctx context.Context, unit uow.UnitOfWork, id domainproduct.ID) (*domainproduct.Product, error) {
	if p.Catalog != nil {
		return p.Catalog.Product(ctx, id)
	}
	return unit.Products().ByID(ctx, id)
}

// loadManaged fetches a quotation the actor in ctx may change.
func loadManaged(ctx context.Context, unit uow.UnitOfWork, id string) (*domainquotation.Quotation, actor.Actor, error) {
	who, ok := actor.FromContext(ctx)
	if !ok {
		return nil, actor.Actor{}, actor.ErrUnauthenticated
	}
	q, err := unit.Quotations().ByID(ctx, domainquotation.ID(id))
	if err != nil {
		return nil, who, err
	}
	if !q.ManagedBy(who.UserID, who.IsAdmin()) {
		return nil, who, domainquotation.ErrNotOwned
	}
	return q, who, nil
}

func defaultValidity(now time.Time, requested *time.Time, validity time.Duration) *time.Time {
	if requested != nil && !requested.IsZero() {
		v := requested.UTC()
		return &v
	}
	if validity <= 0 {
		return nil
	}
	v := now.Add(validity).UTC()
	return &v
}

func newID() string { return uuid.NewString() }
