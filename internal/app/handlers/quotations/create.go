package quotations

import (
	"context"
	"log/slog"
	"time"

	"equiprent/internal/app/actor"
	"equiprent/internal/app/commands"
	"equiprent/internal/app/dto"
	"equiprent/internal/app/handlers/support"
	"equiprent/internal/app/middleware"
	"equiprent/internal/app/outbox"
	"equiprent/internal/app/policies"
	domainquotation "equiprent/internal/domain/quotation"
	domainuser "equiprent/internal/domain/user"
)

const createQuotationKey = "quotations.create"

type CreateQuotationCommand struct {
	Lines           []LineInput `json:"lines" validate:"min=1,dive"`
	Notes           string      `json:"notes" validate:"max=2000"`
	ValidUntil      *time.Time  `json:"valid_until"`
	IdempotencyKeyV string      `json:"-"`
}

func (CreateQuotationCommand) Key() string { return createQuotationKey }

func (c CreateQuotationCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (CreateQuotationCommand) ResultPrototype() any { return &dto.Quotation{} }

func (CreateQuotationCommand) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleCustomer}
}

type CreateQuotationHandler struct {
	Pricing  policies.PricingPort
	Catalog  policies.ProductCatalog
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Numbers  NumberFunc
	Validity time.Duration
	Metrics  Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h *CreateQuotationHandler) Handle(ctx context.Context, cmd CreateQuotationCommand) (*dto.Quotation, error) {
	who, ok := actor.FromContext(ctx)
	if !ok {
		return nil, actor.ErrUnauthenticated
	}
	unit, err := support.UnitFromContext(ctx)
	if err != nil {
		return nil, err
	}

	lines := toDomainLines(cmd.Lines)
	if err := domainquotation.ValidateLines(lines); err != nil {
		h.rejected()
		return nil, err
	}
	priced, err := pricer{Pricing: h.Pricing, Catalog: h.Catalog}.price(ctx, unit, lines)
	if err != nil {
		return nil, err
	}

	now := h.now()
	numbers := h.Numbers
	if numbers == nil {
		numbers = DefaultNumber
	}
	q, err := domainquotation.New(domainquotation.CreateParams{
		ID:            domainquotation.ID(newID()),
		Number:        numbers(now),
		CustomerID:    who.UserID,
		Lines:         priced.Lines,
		TotalAmount:   priced.Totals.Total,
		DepositAmount: priced.Totals.Deposit,
		Notes:         cmd.Notes,
		ValidUntil:    defaultValidity(now, cmd.ValidUntil, h.Validity),
		CreatedAt:     now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Quotations().Save(ctx, q); err != nil {
		return nil, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, q); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("quotation created", "quotation_id", q.ID, "number", q.Number, "customer_id", q.CustomerID, "lines", len(q.Lines))
	}
	result := dto.MapQuotation(q)
	return &result, nil
}

func (h *CreateQuotationHandler) rejected() {
	if h.Metrics != nil {
		h.Metrics.ValidationFailed()
	}
}

func (h *CreateQuotationHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var (
	_ commands.Handler[CreateQuotationCommand, *dto.Quotation] = (*CreateQuotationHandler)(nil)
	_ middleware.IdempotentCommand                             = CreateQuotationCommand{}
	_ middleware.RoleRestricted                                = CreateQuotationCommand{}
)
