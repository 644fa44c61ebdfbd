package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"equiprent/internal/app/actor"
	"equiprent/internal/app/commands"
	"equiprent/internal/app/dto"
	"equiprent/internal/app/outbox"
	domainquotation "equiprent/internal/domain/quotation"
)

// ConfirmedSubscriber feeds quotation.confirmed records into the order projection.
// Other event names are ignored.
type ConfirmedSubscriber struct {
	Commands commands.Bus
}

func (s ConfirmedSubscriber) HandleEvent(ctx context.Context, rec outbox.EventRecord) error {
	if rec.Name != domainquotation.EventConfirmed {
		return nil
	}
	var ev domainquotation.Confirmed
	if err := json.Unmarshal(rec.Payload, &ev); err != nil {
		return fmt.Errorf("orders: decode %s: %w", rec.Name, err)
	}
	ctx = actor.WithActor(ctx, actor.System)
	_, err := commands.Dispatch[ProjectConfirmedQuotationCommand, *dto.Order](ctx, s.Commands, ProjectConfirmedQuotationCommand{Event: ev})
	return err
}
