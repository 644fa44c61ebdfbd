package bus

import (
	"log/slog"
	"time"

	"equiprent/internal/app/commands"
	"equiprent/internal/app/dto"
	orderapp "equiprent/internal/app/handlers/orders"
	productapp "equiprent/internal/app/handlers/products"
	quotationapp "equiprent/internal/app/handlers/quotations"
	"equiprent/internal/app/middleware"
	"equiprent/internal/app/outbox"
	"equiprent/internal/app/policies"
	"equiprent/internal/app/queries"
	"equiprent/internal/app/uow"
	"equiprent/internal/app/validation"
)

// Deps are the ports every handler is built from. Optional ports may be nil.
type Deps struct {
	UoW         uow.UoWFactory
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Idempotency middleware.IdempotencyStore

	Pricing policies.PricingPort
	Catalog policies.ProductCatalog
	Images  policies.ImageStore

	Metrics  quotationapp.Metrics
	Observer middleware.Observer
	Logger   *slog.Logger

	Validity time.Duration
	Numbers  quotationapp.NumberFunc
	Now      func() time.Time
}

// Build registers every command and query handler and wraps both buses in the middleware chain.
func Build(d Deps) (commands.Bus, queries.Bus) {
	numbers := d.Numbers
	if numbers == nil {
		numbers = quotationapp.DefaultNumber
	}

	reg := commands.NewRegistry()
	commands.Register[quotationapp.CreateQuotationCommand, *dto.Quotation](reg, quotationapp.CreateQuotationCommand{}.Key(), &quotationapp.CreateQuotationHandler{
		Pricing:  d.Pricing,
		Catalog:  d.Catalog,
		Outbox:   d.Outbox,
		Encoder:  d.Encoder,
		Numbers:  numbers,
		Validity: d.Validity,
		Metrics:  d.Metrics,
		Logger:   d.Logger,
		Now:      d.Now,
	})
	commands.Register[quotationapp.UpdateQuotationCommand, *dto.Quotation](reg, quotationapp.UpdateQuotationCommand{}.Key(), &quotationapp.UpdateQuotationHandler{
		Pricing: d.Pricing,
		Catalog: d.Catalog,
		Outbox:  d.Outbox,
		Encoder: d.Encoder,
		Metrics: d.Metrics,
		Logger:  d.Logger,
		Now:     d.Now,
	})
	transitions := &quotationapp.TransitionHandler{Outbox: d.Outbox, Encoder: d.Encoder, Metrics: d.Metrics, Logger: d.Logger, Now: d.Now}
	commands.Register(reg, quotationapp.SendQuotationCommand{}.Key(), transitions.Send())
	commands.Register(reg, quotationapp.ConfirmQuotationCommand{}.Key(), transitions.Confirm())
	commands.Register(reg, quotationapp.ExpireQuotationCommand{}.Key(), transitions.Expire())
	commands.Register[quotationapp.DeleteQuotationCommand, *quotationapp.DeleteQuotationResult](reg, quotationapp.DeleteQuotationCommand{}.Key(), &quotationapp.DeleteQuotationHandler{
		Outbox: d.Outbox, Encoder: d.Encoder, Logger: d.Logger,
	})
	commands.Register[quotationapp.ExpireDueQuotationsCommand, *quotationapp.ExpireDueQuotationsResult](reg, quotationapp.ExpireDueQuotationsCommand{}.Key(), &quotationapp.ExpireDueQuotationsHandler{
		Outbox: d.Outbox, Encoder: d.Encoder, Metrics: d.Metrics, Logger: d.Logger,
	})

	products := &productapp.Handlers{Catalog: d.Catalog, Images: d.Images, Logger: d.Logger, Now: d.Now}
	commands.Register(reg, productapp.CreateProductCommand{}.Key(), products.Create())
	commands.Register(reg, productapp.UpdateProductCommand{}.Key(), products.Update())
	commands.Register(reg, productapp.PublishProductCommand{}.Key(), products.Publish())
	commands.Register(reg, productapp.UploadProductImageCommand{}.Key(), products.UploadImage())

	commands.Register[orderapp.ProjectConfirmedQuotationCommand, *dto.Order](reg, orderapp.ProjectConfirmedQuotationCommand{}.Key(), &orderapp.ProjectConfirmedQuotationHandler{Logger: d.Logger})

	validator := validation.New()
	authorizer := middleware.RoleAuthorizer{}
	commandBus := middleware.ChainCommands(reg,
		middleware.Observe(d.Observer, d.Logger),
		middleware.Authorization(authorizer),
		middleware.Validation(validator),
		idempotency(d.Idempotency),
		middleware.OutboxFlush(d.Outbox, d.Logger),
		middleware.Transaction(d.UoW, nil),
	)

	qreg := queries.NewRegistry()
	queries.Register[quotationapp.GetQuotationQuery, *dto.Quotation](qreg, quotationapp.GetQuotationQuery{}.Key(), &quotationapp.GetQuotationHandler{UoWFactory: d.UoW})
	queries.Register[quotationapp.ListQuotationsQuery, *dto.QuotationList](qreg, quotationapp.ListQuotationsQuery{}.Key(), &quotationapp.ListQuotationsHandler{UoWFactory: d.UoW})
	queries.Register[productapp.GetProductQuery, *dto.Product](qreg, productapp.GetProductQuery{}.Key(), &productapp.GetProductHandler{UoWFactory: d.UoW, Catalog: d.Catalog})
	queries.Register[productapp.CatalogQuery, *dto.ProductList](qreg, productapp.CatalogQuery{}.Key(), &productapp.CatalogHandler{UoWFactory: d.UoW})
	queries.Register[productapp.VendorProductsQuery, *dto.ProductList](qreg, productapp.VendorProductsQuery{}.Key(), &productapp.VendorProductsHandler{UoWFactory: d.UoW})
	queries.Register[orderapp.ListOrdersQuery, *dto.OrderList](qreg, orderapp.ListOrdersQuery{}.Key(), &orderapp.ListOrdersHandler{UoWFactory: d.UoW})
	queries.Register[orderapp.GetOrderQuery, *dto.Order](qreg, orderapp.GetOrderQuery{}.Key(), &orderapp.GetOrderHandler{UoWFactory: d.UoW})

	queryBus := middleware.ChainQueries(qreg,
		middleware.ObserveQueries(d.Observer, d.Logger),
		middleware.QueryAuthorization(authorizer),
		middleware.QueryValidation(validator),
	)
	return commandBus, queryBus
}

func idempotency(store middleware.IdempotencyStore) middleware.CommandMiddleware {
	if store == nil {
		return nil
	}
	return middleware.Idempotency(store, nil)
}
