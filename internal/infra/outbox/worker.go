package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

const cloudEventsContentType = "application/cloudevents+json"

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Queue is the claim/ack surface of Store.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*Record, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, reason string) error
}

// Envelope is the CloudEvents 1.0 structured form written to Kafka.
// ID is the outbox record id, which consumers use for deduplication.
type Envelope struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
}

// EventName strips the version suffix from Type.
func (e Envelope) EventName() string {
	const suffix = ".v1"
	if len(e.Type) > len(suffix) && e.Type[len(e.Type)-len(suffix):] == suffix {
		return e.Type[:len(e.Type)-len(suffix)]
	}
	return e.Type
}

type Worker struct {
	Queue    Queue
	Producer Producer
	Topic    string
	Interval time.Duration
	Source   string
	ID       string
	Backoff  []time.Duration
	Logger   *slog.Logger
	Now      func() time.Time
}

// Run polls until ctx is done. Each tick drains every due record.
func (w *Worker) Run(ctx context.Context) error {
	if w.Queue == nil || w.Producer == nil || w.Topic == "" {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				more, err := w.ProcessOnce(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					w.logger().Error("outbox claim failed", "error", err)
					break
				}
				if !more {
					break
				}
			}
		}
	}
}

// ProcessOnce relays a single record and reports whether one was found.
// Publish failures are rescheduled with backoff rather than returned.
func (w *Worker) ProcessOnce(ctx context.Context) (bool, error) {
	rec, err := w.Queue.Claim(ctx, w.ID)
	if err != nil || rec == nil {
		return false, err
	}
	payload, headers, err := w.envelope(rec)
	if err == nil {
		err = w.Producer.Publish(ctx, w.Topic, rec.Aggregate, payload, headers)
	}
	if err != nil {
		next := w.nextRetry(rec.Attempts)
		w.logger().Warn("outbox publish failed", "event", rec.Name, "event_id", rec.ID, "attempts", rec.Attempts+1, "retry_at", next, "error", err)
		return true, w.Queue.MarkFailed(ctx, rec.ID, next, err.Error())
	}
	return true, w.Queue.MarkSent(ctx, rec.ID)
}

func (w *Worker) envelope(rec *Record) ([]byte, map[string]string, error) {
	if !json.Valid(rec.Payload) {
		return nil, nil, errors.New("outbox: payload is not valid json")
	}
	payload, err := json.Marshal(Envelope{
		SpecVersion:     "1.0",
		ID:              rec.ID,
		Type:            rec.Name + ".v1",
		Source:          w.source(),
		Subject:         rec.Aggregate,
		Time:            rec.OccurredAt.UTC(),
		DataContentType: "application/json",
		Data:            rec.Payload,
	})
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{"content-type": cloudEventsContentType}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	now := time.Now()
	if w.Now != nil {
		now = w.Now()
	}
	switch {
	case attempts < len(w.Backoff):
		return now.Add(w.Backoff[attempts])
	case len(w.Backoff) > 0:
		return now.Add(w.Backoff[len(w.Backoff)-1])
	default:
		return now.Add(5 * time.Second)
	}
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://equiprent"
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}
