package policies

import (
	"context"
	"io"

	domainproduct "equiprent/internal/domain/product"
)

// ProductCatalog resolves products for pricing outside the write transaction, typically
// through a read-through cache.
type ProductCatalog interface {
	Product(ctx context.Context, id domainproduct.ID) (*domainproduct.Product, error)
	Invalidate(ctx context.Context, id domainproduct.ID) error
}

// ImageStore persists product images and returns their public URL.
type ImageStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
}
