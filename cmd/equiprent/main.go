package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"equiprent/internal/infra/config"
	"equiprent/internal/infra/obs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger(os.Getenv("APP_ENV")).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("equiprent stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("equiprent stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close(logger)

	if err := app.bootstrap(ctx, cfg, logger); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver)
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return app.server.Shutdown(shutdownCtx)
	})
	for _, bg := range app.background {
		g.Go(func() error {
			logger.Info("background worker starting", "worker", bg.name)
			if err := bg.run(gctx); err != nil {
				return err
			}
			logger.Info("background worker stopped", "worker", bg.name)
			return nil
		})
	}
	return g.Wait()
}
