package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equiprent/internal/app/uow"
	domainorder "equiprent/internal/domain/order"
	domainproduct "equiprent/internal/domain/product"
	domainquotation "equiprent/internal/domain/quotation"
	"equiprent/internal/domain/shared/money"
)

func TestRollbackUndoesUnitWrites(t *testing.T) {
	ctx := context.Background()
	factory := newFactory(nil)
	quotations := factory.QuotationsRepo.(*QuotationRepository)
	orders := factory.OrdersRepo.(*OrderRepository)
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	kept := sampleQuotation("q1", "QT-1", start, start.Add(24*time.Hour))
	require.NoError(t, quotations.Save(ctx, kept))

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)

	edited, err := unit.Quotations().ByID(ctx, "q1")
	require.NoError(t, err)
	edited.Number = "QT-1B"
	edited.Notes = "changed"
	require.NoError(t, unit.Quotations().Save(ctx, edited))
	require.NoError(t, unit.Quotations().Save(ctx, sampleQuotation("q2", "QT-2", start, start.Add(time.Hour))))
	require.NoError(t, unit.Orders().Create(ctx, &domainorder.Order{ID: "ord-q1", QuotationID: "q1", CustomerID: "cust-1"}))

	require.NoError(t, unit.Rollback(ctx))

	got, err := quotations.ByID(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, "QT-1", got.Number)
	assert.Empty(t, got.Notes)
	assert.Equal(t, int64(1), got.Version)
	_, err = quotations.ByID(ctx, "q2")
	assert.ErrorIs(t, err, domainquotation.ErrNotFound)
	_, err = orders.ByQuotation(ctx, "q1")
	assert.ErrorIs(t, err, domainorder.ErrNotFound)

	// the released number is usable again, the restored one is still taken
	assert.NoError(t, quotations.Save(ctx, sampleQuotation("q3", "QT-1B", start, start.Add(time.Hour))))
	assert.ErrorIs(t, quotations.Save(ctx, sampleQuotation("q4", "QT-1", start, start.Add(time.Hour))), domainquotation.ErrDuplicateNumber)
}

func TestRollbackRestoresDeletedQuotationAndProduct(t *testing.T) {
	ctx := context.Background()
	factory := newFactory(nil)
	quotations := factory.QuotationsRepo.(*QuotationRepository)
	products := factory.ProductsRepo.(*ProductRepository)
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, quotations.Save(ctx, sampleQuotation("q1", "QT-1", start, start.Add(time.Hour))))
	p, err := domainproduct.New(domainproduct.CreateParams{
		ID:       "p1",
		VendorID: "v1",
		Params: domainproduct.Params{
			Name:    "Generator",
			Stock:   1,
			Pricing: domainproduct.Pricing{domainproduct.RateDaily: money.Must(5000, "USD")},
		},
	})
	require.NoError(t, err)
	require.NoError(t, products.Save(ctx, p))

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Quotations().Delete(ctx, "q1"))
	changed := p.Clone()
	changed.Name = "Renamed"
	require.NoError(t, unit.Products().Save(ctx, changed))
	require.NoError(t, unit.Rollback(ctx))

	_, err = quotations.ByID(ctx, "q1")
	assert.NoError(t, err)
	stored, err := products.ByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Generator", stored.Name)
}

func TestCommitKeepsUnitWrites(t *testing.T) {
	ctx := context.Background()
	factory := newFactory(nil)
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Quotations().Save(ctx, sampleQuotation("q1", "QT-1", start, start.Add(time.Hour))))
	require.NoError(t, unit.Commit(ctx))
	require.NoError(t, unit.Rollback(ctx))

	_, err = factory.QuotationsRepo.ByID(ctx, "q1")
	assert.NoError(t, err)
}
