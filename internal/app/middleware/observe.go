package middleware

import (
	"context"
	"log/slog"
	"time"

	"equiprent/internal/app/commands"
	"equiprent/internal/app/queries"
)

// Observer receives the outcome of every dispatched message.
type Observer interface {
	Observe(kind, key string, elapsed time.Duration, err error)
}

// Observe times commands and reports them to obs and the logger. Either may be nil.
func Observe(obs Observer, logger *slog.Logger) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			report(ctx, obs, logger, "command", cmd.Key(), time.Since(start), err)
			return res, err
		})
	}
}

func ObserveQueries(obs Observer, logger *slog.Logger) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := next.Ask(ctx, q)
			report(ctx, obs, logger, "query", q.Key(), time.Since(start), err)
			return res, err
		})
	}
}

func report(ctx context.Context, obs Observer, logger *slog.Logger, kind, key string, elapsed time.Duration, err error) {
	if obs != nil {
		obs.Observe(kind, key, elapsed, err)
	}
	if logger == nil {
		return
	}
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, kind+" failed", slog.String("key", key), slog.Duration("elapsed", elapsed), slog.String("error", err.Error()))
		return
	}
	logger.LogAttrs(ctx, slog.LevelDebug, kind+" handled", slog.String("key", key), slog.Duration("elapsed", elapsed))
}
