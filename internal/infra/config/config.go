package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env           string   `envconfig:"APP_ENV" default:"dev"`
	HTTPAddr      string   `envconfig:"HTTP_ADDR" default:":8080"`
	StorageDriver string   `envconfig:"STORAGE_DRIVER" default:"memory"`
	CORSOrigins   []string `envconfig:"CORS_ORIGINS" default:"*"`

	MongoURI string `envconfig:"MONGO_URI"`
	MongoDB  string `envconfig:"MONGO_DB" default:"equiprent"`

	RedisAddr       string        `envconfig:"REDIS_ADDR"`
	ProductCacheTTL time.Duration `envconfig:"PRODUCT_CACHE_TTL" default:"5m"`

	KafkaBrokers     []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopicPrefix string   `envconfig:"KAFKA_TOPIC_PREFIX"`
	KafkaGroupID     string   `envconfig:"KAFKA_GROUP_ID" default:"equiprent-orders"`

	IdempotencyTTL     time.Duration   `envconfig:"IDEMP_TTL" default:"168h"`
	OutboxPollInterval time.Duration   `envconfig:"OUTBOX_POLL_INTERVAL" default:"500ms"`
	RetryBackoff       []time.Duration `envconfig:"RETRY_BACKOFF" default:"1s,5s,30s"`

	SessionTTL        time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	QuotationValidity time.Duration `envconfig:"QUOTATION_VALIDITY" default:"168h"`
	ExpiryCron        string        `envconfig:"EXPIRY_CRON" default:"@every 15m"`
	ExpiryInterval    time.Duration `envconfig:"EXPIRY_INTERVAL" default:"15m"`

	S3Endpoint       string `envconfig:"S3_ENDPOINT"`
	S3PublicEndpoint string `envconfig:"S3_PUBLIC_ENDPOINT"`
	S3AccessKey      string `envconfig:"S3_ACCESS_KEY" default:"minioadmin"`
	S3SecretKey      string `envconfig:"S3_SECRET_KEY" default:"minioadmin"`
	S3Bucket         string `envconfig:"S3_BUCKET" default:"equiprent-products"`
	S3UseSSL         bool   `envconfig:"S3_USE_SSL" default:"false"`

	RateLimitAuth int `envconfig:"RATE_LIMIT_AUTH" default:"20"`

	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
	FixturesPath  string `envconfig:"FIXTURES_PATH"`
}

// Load parses configuration from the current environment, reading a .env file first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)
	cfg.CORSOrigins = compact(cfg.CORSOrigins)
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks requirements that span several keys.
func (c Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when STORAGE_DRIVER=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	if len(c.KafkaBrokers) > 0 && c.StorageDriver != DriverMongo {
		errs = append(errs, errors.New("KAFKA_BROKERS requires STORAGE_DRIVER=mongo"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.QuotationValidity <= 0 {
		errs = append(errs, errors.New("QUOTATION_VALIDITY must be positive"))
	}
	if c.ExpiryInterval <= 0 {
		errs = append(errs, errors.New("EXPIRY_INTERVAL must be positive"))
	}
	if c.OutboxPollInterval <= 0 {
		errs = append(errs, errors.New("OUTBOX_POLL_INTERVAL must be positive"))
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "local"
}

func (c Config) UseMongo() bool { return c.StorageDriver == DriverMongo }

func (c Config) UseRedis() bool { return c.RedisAddr != "" }

func (c Config) UseKafka() bool { return len(c.KafkaBrokers) > 0 }

func (c Config) UseS3() bool { return c.S3Endpoint != "" }

// EventsTopic is the Kafka topic quotation events are published to.
func (c Config) EventsTopic() string {
	return c.KafkaTopicPrefix + "quotation.events.v1"
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
