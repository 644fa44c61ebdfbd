package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"equiprent/internal/app/outbox"
	"equiprent/internal/app/uow"
)

// Subscriber receives flushed records in publication order.
type Subscriber interface {
	HandleEvent(ctx context.Context, rec outbox.EventRecord) error
}

type SubscriberFunc func(ctx context.Context, rec outbox.EventRecord) error

func (f SubscriberFunc) HandleEvent(ctx context.Context, rec outbox.EventRecord) error {
	return f(ctx, rec)
}

// Outbox delivers records to in-process subscribers. Records added inside a memory unit
// of work wait for its commit; a rollback discards them.
type Outbox struct {
	mu          sync.Mutex
	ready       []outbox.EventRecord
	subscribers []Subscriber
	logger      *slog.Logger
	delivered   int
}

func NewOutbox(logger *slog.Logger, subscribers ...Subscriber) *Outbox {
	return &Outbox{logger: logger, subscribers: subscribers}
}

func (o *Outbox) Subscribe(s Subscriber) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subscribers = append(o.subscribers, s)
}

func (o *Outbox) Add(ctx context.Context, rec outbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok && !mu.readOnly {
			mu.stage(rec)
			return nil
		}
	}
	o.release([]outbox.EventRecord{rec})
	return nil
}

func (o *Outbox) release(recs []outbox.EventRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ready = append(o.ready, recs...)
}

// Flush drains ready records to every subscriber. Subscribers run without the lock held,
// so they may dispatch commands that add records of their own.
func (o *Outbox) Flush(ctx context.Context) error {
	var errs []error
	for {
		o.mu.Lock()
		batch := o.ready
		o.ready = nil
		subs := append([]Subscriber(nil), o.subscribers...)
		o.mu.Unlock()
		if len(batch) == 0 {
			return errors.Join(errs...)
		}
		for _, rec := range batch {
			for _, s := range subs {
				if err := s.HandleEvent(ctx, rec); err != nil {
					if o.logger != nil {
						o.logger.Error("outbox subscriber failed", "event", rec.Name, "event_id", rec.ID, "error", err)
					}
					errs = append(errs, err)
				}
			}
		}
		o.mu.Lock()
		o.delivered += len(batch)
		o.mu.Unlock()
	}
}

// Delivered counts records handed to subscribers so far.
func (o *Outbox) Delivered() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.delivered
}

var _ outbox.Outbox = (*Outbox)(nil)
