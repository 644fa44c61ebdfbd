package products

import (
	"context"

	"equiprent/internal/app/actor"
	"equiprent/internal/app/dto"
	"equiprent/internal/app/handlers/support"
	"equiprent/internal/app/policies"
	"equiprent/internal/app/queries"
	"equiprent/internal/app/uow"
	domainproduct "equiprent/internal/domain/product"
	domainuser "equiprent/internal/domain/user"
)

const (
	getProductKey     = "products.get"
	catalogKey        = "products.catalog"
	vendorProductsKey = "products.vendor"
)

type GetProductQuery struct {
	ProductID string `validate:"required"`
}

func (GetProductQuery) Key() string { return getProductKey }

// GetProductHandler serves published products to anyone and drafts to their vendor.
type GetProductHandler struct {
	UoWFactory uow.UoWFactory
	Catalog    policies.ProductCatalog
}

func (h *GetProductHandler) Handle(ctx context.Context, q GetProductQuery) (*dto.Product, error) {
	p, err := h.load(ctx, domainproduct.ID(q.ProductID))
	if err != nil {
		return nil, err
	}
	if !p.Published {
		who, _ := actor.FromContext(ctx)
		if !p.OwnedBy(who.UserID) && !who.IsAdmin() {
			return nil, domainproduct.ErrNotFound
		}
	}
	result := dto.MapProduct(p)
	return &result, nil
}

func (h *GetProductHandler) load(ctx context.Context, id domainproduct.ID) (*domainproduct.Product, error) {
	if h.Catalog != nil {
		return h.Catalog.Product(ctx, id)
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	return unit.Products().ByID(execCtx, id)
}

type CatalogQuery struct {
	Category string `validate:"max=100"`
	Limit    int    `validate:"gte=0,lte=200"`
	Offset   int    `validate:"gte=0"`
}

func (CatalogQuery) Key() string { return catalogKey }

type CatalogHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *CatalogHandler) Handle(ctx context.Context, q CatalogQuery) (*dto.ProductList, error) {
	return list(ctx, h.UoWFactory, domainproduct.ListFilter{
		Category:      q.Category,
		PublishedOnly: true,
		Limit:         q.Limit,
		Offset:        q.Offset,
	})
}

type VendorProductsQuery struct {
	Limit  int `validate:"gte=0,lte=200"`
	Offset int `validate:"gte=0"`
}

func (VendorProductsQuery) Key() string                     { return vendorProductsKey }
func (VendorProductsQuery) AllowedRoles() []domainuser.Role { return vendorRoles }

type VendorProductsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *VendorProductsHandler) Handle(ctx context.Context, q VendorProductsQuery) (*dto.ProductList, error) {
	who, ok := actor.FromContext(ctx)
	if !ok {
		return nil, actor.ErrUnauthenticated
	}
	return list(ctx, h.UoWFactory, domainproduct.ListFilter{VendorID: who.UserID, Limit: q.Limit, Offset: q.Offset})
}

func list(ctx context.Context, factory uow.UoWFactory, filter domainproduct.ListFilter) (*dto.ProductList, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, factory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	if filter.Limit == 0 {
		filter.Limit = 50
	}
	items, err := unit.Products().List(execCtx, filter)
	if err != nil {
		return nil, err
	}
	result := dto.MapProductList(items)
	return &result, nil
}

var (
	_ queries.Handler[GetProductQuery, *dto.Product]         = (*GetProductHandler)(nil)
	_ queries.Handler[CatalogQuery, *dto.ProductList]        = (*CatalogHandler)(nil)
	_ queries.Handler[VendorProductsQuery, *dto.ProductList] = (*VendorProductsHandler)(nil)
)
