package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"equiprent/internal/app/actor"
	"equiprent/internal/app/commands"
	quotationapp "equiprent/internal/app/handlers/quotations"
)

const (
	// QueueDefault is the queue every equiprent task runs on.
	QueueDefault = "default"
	// TaskExpireQuotations sweeps quotations whose validity has elapsed.
	TaskExpireQuotations = "quotations:expire"
)

type ExpirePayload struct {
	Batch int `json:"batch,omitempty"`
}

func NewExpireQuotationsTask(batch int) (*asynq.Task, error) {
	data, err := json.Marshal(ExpirePayload{Batch: batch})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpireQuotations, data), nil
}

// ExpiryJob dispatches the expiry sweep as the system actor.
type ExpiryJob struct {
	Commands commands.Bus
	Logger   *slog.Logger
	Now      func() time.Time
}

// Sweep runs one pass and returns the ids it expired.
func (j *ExpiryJob) Sweep(ctx context.Context, batch int) ([]string, error) {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	ctx = actor.WithActor(ctx, actor.System)
	res, err := commands.Dispatch[quotationapp.ExpireDueQuotationsCommand, *quotationapp.ExpireDueQuotationsResult](
		ctx, j.Commands, quotationapp.ExpireDueQuotationsCommand{At: now(), Batch: batch},
	)
	if err != nil {
		return nil, err
	}
	if len(res.Expired) > 0 && j.Logger != nil {
		j.Logger.Info("quotations expired", "count", len(res.Expired))
	}
	return res.Expired, nil
}

// Handle processes TaskExpireQuotations tasks.
func (j *ExpiryJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ExpirePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Sweep(ctx, payload.Batch)
	return err
}

// RunTicker sweeps on a fixed interval; used when Redis is not configured.
func (j *ExpiryJob) RunTicker(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := j.Sweep(ctx, 0); err != nil && j.Logger != nil {
				j.Logger.Error("quotation expiry sweep failed", "error", err)
			}
		}
	}
}
