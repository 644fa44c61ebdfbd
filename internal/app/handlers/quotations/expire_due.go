package quotations

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"equiprent/internal/app/commands"
	"equiprent/internal/app/handlers/support"
	"equiprent/internal/app/outbox"
	domainquotation "equiprent/internal/domain/quotation"
	domainuser "equiprent/internal/domain/user"
)

const expireDueKey = "quotations.expire_due"

// ExpireDueQuotationsCommand expires every draft or sent quotation past valid_until.
type ExpireDueQuotationsCommand struct {
	At    time.Time
	Batch int `validate:"gte=0,lte=1000"`
}

func (ExpireDueQuotationsCommand) Key() string { return expireDueKey }

func (ExpireDueQuotationsCommand) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleAdmin}
}

type ExpireDueQuotationsResult struct {
	Expired []string `json:"expired"`
}

type ExpireDueQuotationsHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Metrics Metrics
	Logger  *slog.Logger
}

func (h *ExpireDueQuotationsHandler) Handle(ctx context.Context, cmd ExpireDueQuotationsCommand) (*ExpireDueQuotationsResult, error) {
	unit, err := support.UnitFromContext(ctx)
	if err != nil {
		return nil, err
	}
	at := cmd.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()
	batch := cmd.Batch
	if batch == 0 {
		batch = 200
	}
	due, err := unit.Quotations().List(ctx, domainquotation.ListFilter{
		Statuses:    []domainquotation.Status{domainquotation.StatusDraft, domainquotation.StatusSent},
		ValidBefore: at,
		Limit:       batch,
	})
	if err != nil {
		return nil, err
	}
	result := &ExpireDueQuotationsResult{Expired: make([]string, 0, len(due))}
	for _, q := range due {
		if !q.IsDue(at) {
			continue
		}
		from := q.Status
		if err := q.Expire(at); err != nil {
			if errors.Is(err, domainquotation.ErrInvalidTransition) {
				continue
			}
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
		result.Expired = append(result.Expired, string(q.ID))
	}
	if h.Logger != nil && len(result.Expired) > 0 {
		h.Logger.Info("expired due quotations", "count", len(result.Expired), "at", at)
	}
	return result, nil
}

var _ commands.Handler[ExpireDueQuotationsCommand, *ExpireDueQuotationsResult] = (*ExpireDueQuotationsHandler)(nil)
