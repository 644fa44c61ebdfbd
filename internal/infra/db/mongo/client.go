package mongo

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectTimeout = 10 * time.Second

type Client struct {
	DB *mongo.Database
}

// Indexer is implemented by every collection owner in this package.
type Indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// New connects and pings the primary. Transactions in the unit of work need a
// replica set, so the primary must be reachable before the service starts.
func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	opts := options.Client().
		ApplyURI(uri).
		SetAppName("equiprent").
		SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := m.Ping(ctx, readpref.Primary()); err != nil {
		_ = m.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &Client{DB: m.Database(database)}, nil
}

// EnsureIndexes runs each indexer in name order and stops at the first failure.
func (c *Client) EnsureIndexes(ctx context.Context, indexers map[string]Indexer) error {
	for _, name := range slices.Sorted(maps.Keys(indexers)) {
		if err := indexers[name].EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("mongo: ensure %s indexes: %w", name, err)
		}
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, readpref.Primary())
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}
