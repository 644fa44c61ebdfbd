package policies

import (
	"context"

	domainpricing "equiprent/internal/domain/pricing"
	domainproduct "equiprent/internal/domain/product"
)

// PricingPort prices one quotation line at quote time.
type PricingPort interface {
	Quote(ctx context.Context, product *domainproduct.Product, req domainpricing.LineRequest) (domainpricing.LineQuote, error)
}

// TablePricing prices lines straight from the product's pricing table.
type TablePricing struct{}

func (TablePricing) Quote(_ context.Context, product *domainproduct.Product, req domainpricing.LineRequest) (domainpricing.LineQuote, error) {
	return domainpricing.QuoteLine(product, req)
}
