package products

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"equiprent/internal/app/actor"
	"equiprent/internal/app/commands"
	"equiprent/internal/app/dto"
	"equiprent/internal/app/handlers/support"
	"equiprent/internal/app/policies"
	"equiprent/internal/app/uow"
	domainproduct "equiprent/internal/domain/product"
	"equiprent/internal/domain/shared/money"
	domainuser "equiprent/internal/domain/user"
)

const (
	createProductKey  = "products.create"
	updateProductKey  = "products.update"
	publishProductKey = "products.publish"
	uploadImageKey    = "products.images.upload"
)

var ErrImagesUnavailable = errors.New("products: image storage is not configured")

type VariantInput struct {
	ID      string           `json:"id" validate:"required"`
	Name    string           `json:"name"`
	Pricing map[string]int64 `json:"pricing"`
}

// ProductPayload carries amounts in minor units of Currency.
type ProductPayload struct {
	Name            string           `json:"name" validate:"required,max=200"`
	Description     string           `json:"description" validate:"max=5000"`
	Category        string           `json:"category" validate:"max=100"`
	Stock           int              `json:"stock" validate:"gte=0"`
	Currency        string           `json:"currency" validate:"required,len=3"`
	SecurityDeposit int64            `json:"security_deposit" validate:"gte=0"`
	Pricing         map[string]int64 `json:"pricing" validate:"required,min=1"`
	Variants        []VariantInput   `json:"variants" validate:"dive"`
}

func (p ProductPayload) params() (domainproduct.Params, error) {
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	deposit, err := money.New(p.SecurityDeposit, currency)
	if err != nil {
		return domainproduct.Params{}, err
	}
	variants := make([]domainproduct.Variant, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, domainproduct.Variant{ID: v.ID, Name: v.Name, Pricing: pricingTable(v.Pricing, currency)})
	}
	return domainproduct.Params{
		Name:            p.Name,
		Description:     p.Description,
		Category:        p.Category,
		Stock:           p.Stock,
		SecurityDeposit: deposit,
		Pricing:         pricingTable(p.Pricing, currency),
		Variants:        variants,
	}, nil
}

func pricingTable(raw map[string]int64, currency string) domainproduct.Pricing {
	if len(raw) == 0 {
		return nil
	}
	out := make(domainproduct.Pricing, len(raw))
	for k, v := range raw {
		out[domainproduct.RateType(k)] = money.Money{Amount: v, Currency: currency}
	}
	return out
}

var vendorRoles = []domainuser.Role{domainuser.RoleVendor}

type CreateProductCommand struct {
	Payload ProductPayload
}

func (CreateProductCommand) Key() string                     { return createProductKey }
func (CreateProductCommand) AllowedRoles() []domainuser.Role { return vendorRoles }

type UpdateProductCommand struct {
	ProductID string `validate:"required"`
	Payload   ProductPayload
}

func (UpdateProductCommand) Key() string                     { return updateProductKey }
func (UpdateProductCommand) AllowedRoles() []domainuser.Role { return vendorRoles }

type PublishProductCommand struct {
	ProductID string `validate:"required"`
	Publish   bool
}

func (PublishProductCommand) Key() string                     { return publishProductKey }
func (PublishProductCommand) AllowedRoles() []domainuser.Role { return vendorRoles }

type UploadProductImageCommand struct {
	ProductID   string    `validate:"required"`
	FileName    string    `validate:"required"`
	ContentType string    `validate:"omitempty,startswith=image/"`
	Reader      io.Reader `validate:"required"`
}

func (UploadProductImageCommand) Key() string                     { return uploadImageKey }
func (UploadProductImageCommand) AllowedRoles() []domainuser.Role { return vendorRoles }

// Handlers implements the vendor product commands. Catalog, when set, is invalidated once a
// write has committed.
type Handlers struct {
	Catalog policies.ProductCatalog
	Images  policies.ImageStore
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *Handlers) Create() commands.Handler[CreateProductCommand, *dto.Product] {
	return commands.HandlerFunc[CreateProductCommand, *dto.Product](func(ctx context.Context, cmd CreateProductCommand) (*dto.Product, error) {
		who, ok := actor.FromContext(ctx)
		if !ok {
			return nil, actor.ErrUnauthenticated
		}
		unit, err := support.UnitFromContext(ctx)
		if err != nil {
			return nil, err
		}
		params, err := cmd.Payload.params()
		if err != nil {
			return nil, err
		}
		p, err := domainproduct.New(domainproduct.CreateParams{
			ID:       domainproduct.ID(uuid.NewString()),
			VendorID: who.UserID,
			Params:   params,
			Now:      h.now(),
		})
		if err != nil {
			return nil, err
		}
		if err := unit.Products().Save(ctx, p); err != nil {
			return nil, err
		}
		h.log("product created", p, who)
		result := dto.MapProduct(p)
		return &result, nil
	})
}

func (h *Handlers) Update() commands.Handler[UpdateProductCommand, *dto.Product] {
	return commands.HandlerFunc[UpdateProductCommand, *dto.Product](func(ctx context.Context, cmd UpdateProductCommand) (*dto.Product, error) {
		params, err := cmd.Payload.params()
		if err != nil {
			return nil, err
		}
		return h.mutate(ctx, cmd.ProductID, "product updated", func(p *domainproduct.Product, now time.Time) error {
			return p.Update(params, now)
		})
	})
}

func (h *Handlers) Publish() commands.Handler[PublishProductCommand, *dto.Product] {
	return commands.HandlerFunc[PublishProductCommand, *dto.Product](func(ctx context.Context, cmd PublishProductCommand) (*dto.Product, error) {
		return h.mutate(ctx, cmd.ProductID, "product visibility changed", func(p *domainproduct.Product, now time.Time) error {
			if cmd.Publish {
				p.Publish(now)
			} else {
				p.Unpublish(now)
			}
			return nil
		})
	})
}

func (h *Handlers) UploadImage() commands.Handler[UploadProductImageCommand, *dto.Product] {
	return commands.HandlerFunc[UploadProductImageCommand, *dto.Product](func(ctx context.Context, cmd UploadProductImageCommand) (*dto.Product, error) {
		if h.Images == nil {
			return nil, ErrImagesUnavailable
		}
		return h.mutate(ctx, cmd.ProductID, "product image uploaded", func(p *domainproduct.Product, now time.Time) error {
			key := fmt.Sprintf("products/%s/%s%s", p.ID, uuid.NewString(), strings.ToLower(path.Ext(cmd.FileName)))
			url, err := h.Images.Upload(ctx, key, cmd.Reader, cmd.ContentType)
			if err != nil {
				return fmt.Errorf("upload image: %w", err)
			}
			p.AddImage(url, now)
			return nil
		})
	})
}

func (h *Handlers) mutate(ctx context.Context, id, msg string, change func(*domainproduct.Product, time.Time) error) (*dto.Product, error) {
	who, ok := actor.FromContext(ctx)
	if !ok {
		return nil, actor.ErrUnauthenticated
	}
	unit, err := support.UnitFromContext(ctx)
	if err != nil {
		return nil, err
	}
	p, err := unit.Products().ByID(ctx, domainproduct.ID(id))
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(who.UserID) && !who.IsAdmin() {
		return nil, domainproduct.ErrNotOwned
	}
	if err := change(p, h.now()); err != nil {
		return nil, err
	}
	if err := unit.Products().Save(ctx, p); err != nil {
		return nil, err
	}
	if h.Catalog != nil {
		id := p.ID
		uow.AfterCommit(ctx, func(ctx context.Context) {
			if err := h.Catalog.Invalidate(ctx, id); err != nil && h.Logger != nil {
				h.Logger.Warn("product cache invalidation failed", "product_id", id, "error", err)
			}
		})
	}
	h.log(msg, p, who)
	result := dto.MapProduct(p)
	return &result, nil
}

func (h *Handlers) log(msg string, p *domainproduct.Product, who actor.Actor) {
	if h.Logger != nil {
		h.Logger.Info(msg, "product_id", p.ID, "vendor_id", p.VendorID, "actor_id", who.UserID)
	}
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
