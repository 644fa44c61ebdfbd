package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"equiprent/internal/domain/shared/events"
)

// EventRecord is the serialized form of a domain event waiting for delivery.
// ID doubles as the consumer-side dedupe key.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

// Recorder is implemented by aggregates that collect events while they change.
type Recorder interface {
	Drain() []events.DomainEvent
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, fmt.Errorf("outbox: encode %s: %w", ev.EventName(), err)
	}
	rec := EventRecord{
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{},
	}
	if e.IDGenerator != nil {
		rec.ID = e.IDGenerator()
	} else {
		rec.ID = uuid.NewString()
	}
	return rec, nil
}

// RecordDomainEvents encodes evs and adds them to box in order. Nothing is added
// when any event fails to encode.
func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	records := make([]EventRecord, 0, len(evs))
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	for _, rec := range records {
		if err := box.Add(ctx, rec); err != nil {
			return fmt.Errorf("outbox: add %s: %w", rec.Name, err)
		}
	}
	return nil
}

func Drain(ctx context.Context, box Outbox, encoder EventEncoder, rec Recorder) error {
	return RecordDomainEvents(ctx, box, encoder, rec.Drain())
}
