package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"equiprent/internal/app/policies"
	domainproduct "equiprent/internal/domain/product"
)

// ProductSource is the system of record behind the cache.
type ProductSource interface {
	ByID(ctx context.Context, id domainproduct.ID) (*domainproduct.Product, error)
}

// ProductCache is a read-through cache used when pricing quotation lines.
// Redis errors degrade to a direct source read.
type ProductCache struct {
	client *goredis.Client
	source ProductSource
	ttl    time.Duration
	logger *slog.Logger
}

func NewProductCache(client *goredis.Client, source ProductSource, ttl time.Duration, logger *slog.Logger) *ProductCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductCache{client: client, source: source, ttl: ttl, logger: logger}
}

func productKey(id domainproduct.ID) string {
	return "equiprent:product:" + string(id)
}

func (c *ProductCache) Product(ctx context.Context, id domainproduct.ID) (*domainproduct.Product, error) {
	raw, err := c.client.Get(ctx, productKey(id)).Bytes()
	switch {
	case err == nil:
		var p domainproduct.Product
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil {
			return &p, nil
		}
		c.logger.Warn("product cache entry unreadable", "product_id", id)
	case !errors.Is(err, goredis.Nil):
		c.logger.Warn("product cache read failed", "product_id", id, "error", err)
	}

	p, err := c.source.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(p); err == nil {
		if err := c.client.Set(ctx, productKey(id), data, c.ttl).Err(); err != nil {
			c.logger.Warn("product cache write failed", "product_id", id, "error", err)
		}
	}
	return p, nil
}

func (c *ProductCache) Invalidate(ctx context.Context, id domainproduct.ID) error {
	return c.client.Del(ctx, productKey(id)).Err()
}

var _ policies.ProductCatalog = (*ProductCache)(nil)
