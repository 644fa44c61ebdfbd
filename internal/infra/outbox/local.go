package outbox

import (
	"context"
	"encoding/json"

	appoutbox "equiprent/internal/app/outbox"
)

// Subscriber consumes relayed records; orders.ConfirmedSubscriber satisfies it.
type Subscriber interface {
	HandleEvent(ctx context.Context, rec appoutbox.EventRecord) error
}

// LocalProducer stands in for Kafka when no brokers are configured: it unwraps the
// envelope and hands the record to in-process subscribers.
type LocalProducer struct {
	Subscribers []Subscriber
}

func (p LocalProducer) Publish(ctx context.Context, _ string, _ string, payload []byte, headers map[string]string) error {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return err
	}
	rec := appoutbox.EventRecord{
		ID:         env.ID,
		Name:       env.EventName(),
		Payload:    env.Data,
		OccurredAt: env.Time,
		Aggregate:  env.Subject,
		Headers:    headers,
	}
	for _, s := range p.Subscribers {
		if err := s.HandleEvent(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
