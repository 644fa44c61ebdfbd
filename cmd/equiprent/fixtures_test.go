package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainproduct "equiprent/internal/domain/product"
	"equiprent/internal/infra/storage/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadProductFixturesFromRepoFile(t *testing.T) {
	repo := memory.NewProductRepository()
	n, err := loadProductFixtures(context.Background(), repo, filepath.Join("..", "..", "fixtures", "products.json"), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	p, err := repo.ByID(context.Background(), "prod-mini-excavator")
	require.NoError(t, err)
	assert.True(t, p.Published)
	rate, err := p.RateFor("breaker", domainproduct.RateDaily)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), rate.Amount)
	assert.Equal(t, "USD", rate.Currency)
}

func TestLoadProductFixturesSkipsInvalidEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id":"ok","vendor_id":"v","name":"Drill","currency":"EUR","pricing":{"daily":1200},"unpublished":true},
		{"id":"bad","vendor_id":"v","name":"","currency":"EUR","pricing":{"daily":1200}}
	]`), 0o600))
	repo := memory.NewProductRepository()

	n, err := loadProductFixtures(context.Background(), repo, path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, err := repo.ByID(context.Background(), "ok")
	require.NoError(t, err)
	assert.False(t, p.Published)
	_, err = repo.ByID(context.Background(), "bad")
	assert.ErrorIs(t, err, domainproduct.ErrNotFound)
}

func TestLoadProductFixturesMissingFile(t *testing.T) {
	n, err := loadProductFixtures(context.Background(), memory.NewProductRepository(), filepath.Join(t.TempDir(), "none.json"), discardLogger())
	require.NoError(t, err)
	assert.Zero(t, n)
}
