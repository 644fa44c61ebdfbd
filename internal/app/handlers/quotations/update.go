package quotations

import (
	"context"
	"log/slog"
	"time"

	"equiprent/internal/app/commands"
	"equiprent/internal/app/dto"
	"equiprent/internal/app/handlers/support"
	"equiprent/internal/app/outbox"
	"equiprent/internal/app/policies"
	domainquotation "equiprent/internal/domain/quotation"
)

const updateQuotationKey = "quotations.update"

// UpdateQuotationCommand replaces the lines and notes of a draft. Lines are re-priced.
type UpdateQuotationCommand struct {
	QuotationID string      `json:"-" validate:"required"`
	Lines       []LineInput `json:"lines" validate:"min=1,dive"`
	Notes       string      `json:"notes" validate:"max=2000"`
	ValidUntil  *time.Time  `json:"valid_until"`
}

func (UpdateQuotationCommand) Key() string { return updateQuotationKey }

type UpdateQuotationHandler struct {
	Pricing policies.PricingPort
	Catalog policies.ProductCatalog
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Metrics Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *UpdateQuotationHandler) Handle(ctx context.Context, cmd UpdateQuotationCommand) (*dto.Quotation, error) {
	unit, err := support.UnitFromContext(ctx)
	if err != nil {
		return nil, err
	}
	q, who, err := loadManaged(ctx, unit, cmd.QuotationID)
	if err != nil {
		return nil, err
	}
	if q.Status != domainquotation.StatusDraft {
		return nil, domainquotation.ErrNotDraft
	}

	lines := toDomainLines(cmd.Lines)
	if err := domainquotation.ValidateLines(lines); err != nil {
		if h.Metrics != nil {
			h.Metrics.ValidationFailed()
		}
		return nil, err
	}
	priced, err := pricer{Pricing: h.Pricing, Catalog: h.Catalog}.price(ctx, unit, lines)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now().UTC()
	}
	if err := q.Revise(domainquotation.ReviseParams{
		Lines:         priced.Lines,
		TotalAmount:   priced.Totals.Total,
		DepositAmount: priced.Totals.Deposit,
		Notes:         cmd.Notes,
		ValidUntil:    cmd.ValidUntil,
	}, now); err != nil {
		return nil, err
	}
	if err := unit.Quotations().Save(ctx, q); err != nil {
		return nil, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, q); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("quotation revised", "quotation_id", q.ID, "actor_id", who.UserID, "lines", len(q.Lines))
	}
	result := dto.MapQuotation(q)
	return &result, nil
}

var _ commands.Handler[UpdateQuotationCommand, *dto.Quotation] = (*UpdateQuotationHandler)(nil)
