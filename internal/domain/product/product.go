package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"equiprent/internal/domain/shared/money"
)

var (
	ErrNotFound         = errors.New("product: not found")
	ErrIDRequired       = errors.New("product: id is required")
	ErrVendorRequired   = errors.New("product: vendor id is required")
	ErrNameRequired     = errors.New("product: name is required")
	ErrPricingRequired  = errors.New("product: at least one rate is required")
	ErrInvalidRate      = errors.New("product: rate must be positive")
	ErrUnknownRateType  = errors.New("product: unknown rate type")
	ErrCurrencyMismatch = errors.New("product: rates must share one currency")
	ErrNegativeStock    = errors.New("product: stock cannot be negative")
	ErrNegativeDeposit  = errors.New("product: security deposit cannot be negative")
	ErrVariantNotFound  = errors.New("product: variant not found")
	ErrRateMissing      = errors.New("product: no rate for duration type")
	ErrNotPublished     = errors.New("product: not published")
	ErrNotOwned         = errors.New("product: not owned by vendor")
)

type ID string

// RateType keys the pricing table. Values mirror quotation duration types.
type RateType string

const (
	RateHourly RateType = "hourly"
	RateDaily  RateType = "daily"
	RateWeekly RateType = "weekly"
	RateCustom RateType = "custom"
)

func ParseRateType(raw string) (RateType, bool) {
	switch RateType(strings.ToLower(strings.TrimSpace(raw))) {
	case RateHourly:
		return RateHourly, true
	case RateDaily:
		return RateDaily, true
	case RateWeekly:
		return RateWeekly, true
	case RateCustom:
		return RateCustom, true
	default:
		return "", false
	}
}

// Pricing is the rate per period of each duration type.
type Pricing map[RateType]money.Money

func (p Pricing) clone() Pricing {
	if p == nil {
		return nil
	}
	out := make(Pricing, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// check normalises the keys and enforces positive single-currency rates.
func (p Pricing) check(required bool) (Pricing, string, error) {
	if len(p) == 0 {
		if required {
			return nil, "", ErrPricingRequired
		}
		return nil, "", nil
	}
	out := make(Pricing, len(p))
	currency := ""
	for raw, rate := range p {
		kind, ok := ParseRateType(string(raw))
		if !ok {
			return nil, "", ErrUnknownRateType
		}
		if rate.Amount <= 0 {
			return nil, "", ErrInvalidRate
		}
		if currency == "" {
			currency = rate.Currency
		} else if rate.Currency != currency {
			return nil, "", ErrCurrencyMismatch
		}
		out[kind] = rate
	}
	return out, currency, nil
}

type Variant struct {
	ID      string
	Name    string
	Pricing Pricing
}

type Product struct {
	ID              ID
	VendorID        string
	Name            string
	Description     string
	Category        string
	Stock           int
	SecurityDeposit money.Money
	Pricing         Pricing
	Variants        []Variant
	Images          []string
	Published       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type ListFilter struct {
	VendorID      string
	Category      string
	PublishedOnly bool
	Limit         int
	Offset        int
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Product, error)
	Save(ctx context.Context, p *Product) error
	List(ctx context.Context, filter ListFilter) ([]*Product, error)
}

type Params struct {
	Name            string
	Description     string
	Category        string
	Stock           int
	SecurityDeposit money.Money
	Pricing         Pricing
	Variants        []Variant
}

type CreateParams struct {
	ID       ID
	VendorID string
	Params
	Now time.Time
}

func New(params CreateParams) (*Product, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	vendor := strings.TrimSpace(params.VendorID)
	if vendor == "" {
		return nil, ErrVendorRequired
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	p := &Product{
		ID:        params.ID,
		VendorID:  vendor,
		CreatedAt: now.UTC(),
	}
	if err := p.apply(params.Params, now); err != nil {
		return nil, err
	}
	return p, nil
}

// Update replaces the editable attributes. Published state and images are kept.
func (p *Product) Update(params Params, now time.Time) error {
	return p.apply(params, now)
}

func (p *Product) apply(params Params, now time.Time) error {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return ErrNameRequired
	}
	if params.Stock < 0 {
		return ErrNegativeStock
	}
	pricing, currency, err := params.Pricing.check(true)
	if err != nil {
		return err
	}
	deposit := params.SecurityDeposit
	if deposit.Currency == "" {
		deposit = money.Zero(currency)
	}
	if deposit.IsNegative() {
		return ErrNegativeDeposit
	}
	if deposit.Currency != currency {
		return ErrCurrencyMismatch
	}
	variants := make([]Variant, 0, len(params.Variants))
	for _, v := range params.Variants {
		vp, vc, err := v.Pricing.check(false)
		if err != nil {
			return err
		}
		if vc != "" && vc != currency {
			return ErrCurrencyMismatch
		}
		id := strings.TrimSpace(v.ID)
		if id == "" {
			return ErrIDRequired
		}
		variants = append(variants, Variant{ID: id, Name: strings.TrimSpace(v.Name), Pricing: vp})
	}

	p.Name = name
	p.Description = strings.TrimSpace(params.Description)
	p.Category = strings.ToLower(strings.TrimSpace(params.Category))
	p.Stock = params.Stock
	p.SecurityDeposit = deposit
	p.Pricing = pricing
	p.Variants = variants
	p.touch(now)
	return nil
}

func (p *Product) Currency() string {
	for _, rate := range p.Pricing {
		return rate.Currency
	}
	return p.SecurityDeposit.Currency
}

// RateFor resolves the per-period rate, preferring the variant's override. A custom rate
// falls back to the daily one.
func (p *Product) RateFor(variantID string, kind RateType) (money.Money, error) {
	table := p.Pricing
	if variantID = strings.TrimSpace(variantID); variantID != "" {
		v, ok := p.Variant(variantID)
		if !ok {
			return money.Money{}, ErrVariantNotFound
		}
		if rate, ok := lookup(v.Pricing, kind); ok {
			return rate, nil
		}
	}
	if rate, ok := lookup(table, kind); ok {
		return rate, nil
	}
	return money.Money{}, ErrRateMissing
}

func lookup(table Pricing, kind RateType) (money.Money, bool) {
	if rate, ok := table[kind]; ok {
		return rate, true
	}
	if kind == RateCustom {
		rate, ok := table[RateDaily]
		return rate, ok
	}
	return money.Money{}, false
}

func (p *Product) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

func (p *Product) Publish(now time.Time) {
	p.Published = true
	p.touch(now)
}

func (p *Product) Unpublish(now time.Time) {
	p.Published = false
	p.touch(now)
}

func (p *Product) AddImage(url string, now time.Time) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}
	p.Images = append(p.Images, url)
	p.touch(now)
}

func (p *Product) OwnedBy(vendorID string) bool {
	return vendorID != "" && p.VendorID == vendorID
}

// Clone returns a deep copy safe to hand out of a repository.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Pricing = p.Pricing.clone()
	cp.Images = append([]string(nil), p.Images...)
	cp.Variants = make([]Variant, len(p.Variants))
	for i, v := range p.Variants {
		v.Pricing = v.Pricing.clone()
		cp.Variants[i] = v
	}
	return &cp
}

func (p *Product) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	p.UpdatedAt = now.UTC()
}
