package quotations

import (
	"context"
	"log/slog"
	"time"

	"equiprent/internal/app/commands"
	"equiprent/internal/app/handlers/support"
	"equiprent/internal/app/outbox"
)

const deleteQuotationKey = "quotations.delete"

type DeleteQuotationCommand struct {
	QuotationID string `validate:"required"`
}

func (DeleteQuotationCommand) Key() string { return deleteQuotationKey }

type DeleteQuotationResult struct {
	QuotationID string `json:"quotation_id"`
}

type DeleteQuotationHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
}

func (h *DeleteQuotationHandler) Handle(ctx context.Context, cmd DeleteQuotationCommand) (*DeleteQuotationResult, error) {
	unit, err := support.UnitFromContext(ctx)
	if err != nil {
		return nil, err
	}
	q, who, err := loadManaged(ctx, unit, cmd.QuotationID)
	if err != nil {
		return nil, err
	}
	if err := q.MarkDeleted(time.Now()); err != nil {
		return nil, err
	}
	if err := unit.Quotations().Delete(ctx, q.ID); err != nil {
		return nil, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, q); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("quotation deleted", "quotation_id", q.ID, "actor_id", who.UserID)
	}
	return &DeleteQuotationResult{QuotationID: string(q.ID)}, nil
}

var _ commands.Handler[DeleteQuotationCommand, *DeleteQuotationResult] = (*DeleteQuotationHandler)(nil)
