package quotations

import (
	"context"
	"log/slog"
	"time"

	"equiprent/internal/app/commands"
	"equiprent/internal/app/dto"
	"equiprent/internal/app/handlers/support"
	"equiprent/internal/app/outbox"
	domainquotation "equiprent/internal/domain/quotation"
	domainuser "equiprent/internal/domain/user"
)

const (
	sendQuotationKey    = "quotations.send"
	confirmQuotationKey = "quotations.confirm"
	expireQuotationKey  = "quotations.expire"
)

type SendQuotationCommand struct {
	QuotationID string `validate:"required"`
}

func (SendQuotationCommand) Key() string { return sendQuotationKey }

type ConfirmQuotationCommand struct {
	QuotationID string `validate:"required"`
}

func (ConfirmQuotationCommand) Key() string { return confirmQuotationKey }

type ExpireQuotationCommand struct {
	QuotationID string `validate:"required"`
}

func (ExpireQuotationCommand) Key() string { return expireQuotationKey }

// Manual expiry is an admin operation; customers let quotations lapse.
func (ExpireQuotationCommand) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleAdmin}
}

// TransitionHandler applies one status transition to a quotation the actor manages.
type TransitionHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Metrics Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *TransitionHandler) Send() commands.Handler[SendQuotationCommand, *dto.Quotation] {
	return commands.HandlerFunc[SendQuotationCommand, *dto.Quotation](func(ctx context.Context, cmd SendQuotationCommand) (*dto.Quotation, error) {
		return h.apply(ctx, cmd.QuotationID, (*domainquotation.Quotation).Send)
	})
}

func (h *TransitionHandler) Confirm() commands.Handler[ConfirmQuotationCommand, *dto.Quotation] {
	return commands.HandlerFunc[ConfirmQuotationCommand, *dto.Quotation](func(ctx context.Context, cmd ConfirmQuotationCommand) (*dto.Quotation, error) {
		return h.apply(ctx, cmd.QuotationID, (*domainquotation.Quotation).Confirm)
	})
}

func (h *TransitionHandler) Expire() commands.Handler[ExpireQuotationCommand, *dto.Quotation] {
	return commands.HandlerFunc[ExpireQuotationCommand, *dto.Quotation](func(ctx context.Context, cmd ExpireQuotationCommand) (*dto.Quotation, error) {
		return h.apply(ctx, cmd.QuotationID, (*domainquotation.Quotation).Expire)
	})
}

func (h *TransitionHandler) apply(ctx context.Context, id string, transition func(*domainquotation.Quotation, time.Time) error) (*dto.Quotation, error) {
	unit, err := support.UnitFromContext(ctx)
	if err != nil {
		return nil, err
	}
	q, who, err := loadManaged(ctx, unit, id)
	if err != nil {
		return nil, err
	}
	from := q.Status
	if err := transition(q, h.now()); err != nil {
		return nil, err
	}
	if err := unit.Quotations().Save(ctx, q); err != nil {
		return nil, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, q); err != nil {
		return nil, err
	}
	if h.Metrics != nil {
		h.Metrics.Transitioned(from, q.Status)
	}
	if h.Logger != nil {
		h.Logger.Info("quotation status changed", "quotation_id", q.ID, "from", from, "to", q.Status, "actor_id", who.UserID)
	}
	result := dto.MapQuotation(q)
	return &result, nil
}

func (h *TransitionHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}
