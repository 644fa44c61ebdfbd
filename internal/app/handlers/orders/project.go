package orders

import (
	"context"
	"errors"
	"log/slog"

	"equiprent/internal/app/commands"
	"equiprent/internal/app/dto"
	"equiprent/internal/app/handlers/support"
	domainorder "equiprent/internal/domain/order"
	domainquotation "equiprent/internal/domain/quotation"
	domainuser "equiprent/internal/domain/user"
)

const projectOrderKey = "orders.project_confirmed"

// ProjectConfirmedQuotationCommand turns a quotation.confirmed event into an order.
// Replaying the same event returns the existing order.
type ProjectConfirmedQuotationCommand struct {
	Event domainquotation.Confirmed
}

func (ProjectConfirmedQuotationCommand) Key() string { return projectOrderKey }

func (ProjectConfirmedQuotationCommand) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleAdmin}
}

type ProjectConfirmedQuotationHandler struct {
	Logger *slog.Logger
}

func (h *ProjectConfirmedQuotationHandler) Handle(ctx context.Context, cmd ProjectConfirmedQuotationCommand) (*dto.Order, error) {
	unit, err := support.UnitFromContext(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := unit.Orders().ByQuotation(ctx, cmd.Event.QuotationID)
	switch {
	case err == nil:
		result := dto.MapOrder(existing)
		return &result, nil
	case !errors.Is(err, domainorder.ErrNotFound):
		return nil, err
	}

	o, err := domainorder.FromConfirmed(cmd.Event)
	if err != nil {
		return nil, err
	}
	if err := unit.Orders().Create(ctx, o); err != nil {
		if errors.Is(err, domainorder.ErrAlreadyExists) {
			existing, getErr := unit.Orders().ByQuotation(ctx, cmd.Event.QuotationID)
			if getErr != nil {
				return nil, getErr
			}
			result := dto.MapOrder(existing)
			return &result, nil
		}
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("order created from quotation", "order_id", o.ID, "quotation_id", o.QuotationID, "customer_id", o.CustomerID)
	}
	result := dto.MapOrder(o)
	return &result, nil
}

var _ commands.Handler[ProjectConfirmedQuotationCommand, *dto.Order] = (*ProjectConfirmedQuotationHandler)(nil)
