package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"equiprent/internal/app/bus"
	"equiprent/internal/app/commands"
	orderapp "equiprent/internal/app/handlers/orders"
	"equiprent/internal/app/middleware"
	appoutbox "equiprent/internal/app/outbox"
	"equiprent/internal/app/policies"
	authsvc "equiprent/internal/app/services/auth"
	"equiprent/internal/app/uow"
	domainauth "equiprent/internal/domain/auth"
	domainproduct "equiprent/internal/domain/product"
	domainuser "equiprent/internal/domain/user"
	"equiprent/internal/infra/broker/kafka"
	"equiprent/internal/infra/config"
	"equiprent/internal/infra/db/mongo"
	ginserver "equiprent/internal/infra/http/gin"
	"equiprent/internal/infra/inbox"
	"equiprent/internal/infra/obs"
	"equiprent/internal/infra/outbox"
	redisinfra "equiprent/internal/infra/redis"
	"equiprent/internal/infra/security"
	"equiprent/internal/infra/storage/memory"
	"equiprent/internal/infra/storage/s3"
	"equiprent/internal/jobs"
)

type backgroundWorker struct {
	name string
	run  func(ctx context.Context) error
}

type application struct {
	server     *http.Server
	auth       *authsvc.Service
	products   domainproduct.Repository
	background []backgroundWorker
	closers    []io.Closer
}

// storage holds the ports that differ between the memory and mongo drivers.
type storage struct {
	factory     uow.UoWFactory
	outbox      appoutbox.Outbox
	idempotency middleware.IdempotencyStore
	products    domainproduct.Repository
	users       domainuser.Repository
	mongo       *mongodriver.Database
	memoryBox   *memory.Outbox
	outboxStore *outbox.Store
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{}
	checks := map[string]obs.Check{}

	store, err := buildStorage(ctx, cfg, app, checks, logger)
	if err != nil {
		app.close(logger)
		return nil, err
	}
	app.products = store.products

	var redisClient *goredis.Client
	if cfg.UseRedis() {
		redisClient, err = redisinfra.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			app.close(logger)
			return nil, err
		}
		app.closers = append(app.closers, redisClient)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	var catalog policies.ProductCatalog
	var sessions domainauth.SessionStore = memory.NewSessionStore()
	if redisClient != nil {
		catalog = redisinfra.NewProductCache(redisClient, store.products, cfg.ProductCacheTTL, logger)
		sessions = redisinfra.NewSessionStore(redisClient)
	}

	var images policies.ImageStore
	if cfg.UseS3() {
		imageStore, err := s3.NewImageStore(s3.Config{
			Endpoint:       cfg.S3Endpoint,
			PublicEndpoint: cfg.S3PublicEndpoint,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			Bucket:         cfg.S3Bucket,
			UseSSL:         cfg.S3UseSSL,
		}, logger)
		if err != nil {
			app.close(logger)
			return nil, err
		}
		images = imageStore
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := obs.NewMetrics(registry)

	commandBus, queryBus := bus.Build(bus.Deps{
		UoW:         store.factory,
		Outbox:      store.outbox,
		Encoder:     appoutbox.JSONEventEncoder{},
		Idempotency: store.idempotency,
		Catalog:     catalog,
		Images:      images,
		Metrics:     metrics,
		Observer:    metrics,
		Logger:      logger,
		Validity:    cfg.QuotationValidity,
	})
	projector := orderapp.ConfirmedSubscriber{Commands: commandBus}

	if err := wireEvents(cfg, store, projector, app, logger); err != nil {
		app.close(logger)
		return nil, err
	}
	if err := wireExpiry(cfg, commandBus, app, logger); err != nil {
		app.close(logger)
		return nil, err
	}

	app.auth = &authsvc.Service{
		Users:      store.users,
		Sessions:   sessions,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.TokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	app.server = ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: checks, Timeout: 2 * time.Second}, ginserver.Handlers{
		Quotation:      ginserver.QuotationHandler{Commands: commandBus, Queries: queryBus, Logger: logger},
		Product:        ginserver.ProductHandler{Commands: commandBus, Queries: queryBus, Logger: logger},
		Order:          ginserver.OrderHandler{Queries: queryBus, Logger: logger},
		Auth:           ginserver.AuthHandler{Service: app.auth, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Service: app.auth, Logger: logger}.Handle,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	})
	return app, nil
}

func buildStorage(ctx context.Context, cfg config.Config, app *application, checks map[string]obs.Check, logger *slog.Logger) (storage, error) {
	if !cfg.UseMongo() {
		box := memory.NewOutbox(logger)
		products := memory.NewProductRepository()
		return storage{
			factory: memory.Factory{
				QuotationsRepo: memory.NewQuotationRepository(),
				ProductsRepo:   products,
				OrdersRepo:     memory.NewOrderRepository(),
				Outbox:         box,
			},
			outbox:      box,
			memoryBox:   box,
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			products:    products,
			users:       memory.NewUserRepository(),
		}, nil
	}

	client, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return storage{}, err
	}
	app.closers = append(app.closers, closerFunc(func() error {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.Close(closeCtx)
	}))
	checks["mongo"] = client.Ping

	db := client.DB
	quotations := mongo.NewQuotationRepository(db)
	products := mongo.NewProductRepository(db)
	orders := mongo.NewOrderRepository(db)
	users := mongo.NewUserRepository(db)
	idem := mongo.NewIdempotencyStore(db, cfg.IdempotencyTTL)
	box := outbox.NewStore(db)

	if err := client.EnsureIndexes(ctx, map[string]mongo.Indexer{
		"quotations":  quotations,
		"products":    products,
		"orders":      orders,
		"users":       users,
		"idempotency": idem,
		"outbox":      box,
	}); err != nil {
		return storage{}, err
	}

	return storage{
		factory: mongo.Factory{
			DB:             db,
			QuotationsRepo: quotations,
			ProductsRepo:   products,
			OrdersRepo:     orders,
		},
		outbox:      box,
		outboxStore: box,
		idempotency: idem,
		products:    products,
		users:       users,
		mongo:       db,
	}, nil
}

// wireEvents connects the order projector to whichever outbox the storage driver produced.
func wireEvents(cfg config.Config, store storage, projector orderapp.ConfirmedSubscriber, app *application, logger *slog.Logger) error {
	if store.memoryBox != nil {
		store.memoryBox.Subscribe(projector)
		return nil
	}

	worker := &outbox.Worker{
		Queue:    store.outboxStore,
		Topic:    cfg.EventsTopic(),
		Interval: cfg.OutboxPollInterval,
		Backoff:  cfg.RetryBackoff,
		Logger:   logger,
	}
	if !cfg.UseKafka() {
		worker.Producer = outbox.LocalProducer{Subscribers: []outbox.Subscriber{projector}}
		app.background = append(app.background, backgroundWorker{name: "outbox-local", run: worker.Run})
		return nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("equiprent-outbox"))
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	app.closers = append(app.closers, producer)
	worker.Producer = producer

	dedupe := inbox.NewStore(store.mongo, cfg.KafkaGroupID)
	if err := dedupe.EnsureIndexes(context.Background()); err != nil {
		return fmt.Errorf("mongo: ensure inbox indexes: %w", err)
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, []string{cfg.EventsTopic()}, nil, projector, dedupe, logger)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	app.closers = append(app.closers, consumer)
	app.background = append(app.background,
		backgroundWorker{name: "outbox-kafka", run: worker.Run},
		backgroundWorker{name: "order-projector", run: consumer.Run},
	)
	return nil
}

// wireExpiry schedules the sweep through asynq when Redis is present and on a ticker otherwise.
func wireExpiry(cfg config.Config, commandBus commands.Bus, app *application, logger *slog.Logger) error {
	job := &jobs.ExpiryJob{Commands: commandBus, Logger: logger}
	if !cfg.UseRedis() {
		app.background = append(app.background, backgroundWorker{
			name: "expiry-ticker",
			run:  func(ctx context.Context) error { return job.RunTicker(ctx, cfg.ExpiryInterval) },
		})
		return nil
	}
	task, err := jobs.NewExpireQuotationsTask(0)
	if err != nil {
		return err
	}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  []jobs.TaskHandler{{Type: jobs.TaskExpireQuotations, Handler: job.Handle}},
		Cron: []jobs.CronRegistration{{
			Spec:    cfg.ExpiryCron,
			Task:    task,
			Options: []asynq.Option{asynq.MaxRetry(3), asynq.Queue(jobs.QueueDefault), asynq.Unique(cfg.ExpiryInterval)},
		}},
	})
	if err != nil {
		return fmt.Errorf("asynq worker: %w", err)
	}
	app.background = append(app.background, backgroundWorker{name: "expiry-asynq", run: worker.Run})
	return nil
}

// bootstrap seeds the admin account and product fixtures.
func (a *application) bootstrap(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if cfg.AdminEmail != "" {
		if err := a.auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		logger.Info("admin account ready", "email", cfg.AdminEmail)
	}
	if cfg.FixturesPath != "" {
		n, err := loadProductFixtures(ctx, a.products, cfg.FixturesPath, logger)
		if err != nil {
			logger.Warn("product fixtures load failed", "path", cfg.FixturesPath, "error", err)
		} else {
			logger.Info("product fixtures imported", "count", n, "path", cfg.FixturesPath)
		}
	}
	return nil
}

func (a *application) close(logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}
