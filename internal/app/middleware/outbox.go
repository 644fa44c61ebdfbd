package middleware

import (
	"context"
	"log/slog"

	"equiprent/internal/app/commands"
	"equiprent/internal/app/outbox"
)

// OutboxFlush hands records to the relay once Transaction has committed. A delivery
// failure is logged; the committed result is still returned.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				logger.ErrorContext(ctx, "outbox delivery failed after commit", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
