package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainquotation "equiprent/internal/domain/quotation"
	"equiprent/internal/domain/shared/money"
)

func sampleQuotation(id, number string, start, end time.Time) *domainquotation.Quotation {
	return &domainquotation.Quotation{
		ID:          domainquotation.ID(id),
		Number:      number,
		CustomerID:  "cust-1",
		Status:      domainquotation.StatusDraft,
		TotalAmount: money.Must(1000, "USD"),
		Lines: []domainquotation.Line{{
			ProductID:    "p1",
			Quantity:     1,
			RentalStart:  start,
			RentalEnd:    end,
			DurationType: domainquotation.DurationDaily,
			UnitPrice:    money.Must(1000, "USD"),
			Subtotal:     money.Must(1000, "USD"),
		}},
		CreatedAt: start,
	}
}

func TestQuotationRepositoryRejectsInvalidWithoutWriting(t *testing.T) {
	ctx := context.Background()
	repo := NewQuotationRepository()
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	bad := sampleQuotation("q1", "QT-1", start, start)
	err := repo.Save(ctx, bad)
	require.ErrorIs(t, err, domainquotation.ErrValidation)
	assert.Equal(t, domainquotation.RentalWindowMessage, err.Error())

	_, err = repo.ByID(ctx, "q1")
	assert.ErrorIs(t, err, domainquotation.ErrNotFound)
}

func TestQuotationRepositoryKeepsPreviousVersionOnInvalidUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewQuotationRepository()
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	good := sampleQuotation("q1", "QT-1", start, start.Add(24*time.Hour))
	require.NoError(t, repo.Save(ctx, good))
	assert.Equal(t, int64(1), good.Version)

	changed := sampleQuotation("q1", "QT-1", start, start.Add(24*time.Hour))
	changed.Lines = append(changed.Lines, changed.Lines[0])
	changed.Lines[1].RentalEnd = start.Add(-time.Hour)
	require.ErrorIs(t, repo.Save(ctx, changed), domainquotation.ErrValidation)

	stored, err := repo.ByID(ctx, "q1")
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 1)
	assert.Equal(t, int64(1), stored.Version)
}

func TestQuotationRepositoryUniqueNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewQuotationRepository()
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, sampleQuotation("q1", "QT-1", start, start.Add(time.Hour))))
	err := repo.Save(ctx, sampleQuotation("q2", "QT-1", start, start.Add(time.Hour)))
	assert.ErrorIs(t, err, domainquotation.ErrDuplicateNumber)

	require.NoError(t, repo.Delete(ctx, "q1"))
	require.NoError(t, repo.Save(ctx, sampleQuotation("q2", "QT-1", start, start.Add(time.Hour))))
}

func TestQuotationRepositoryListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewQuotationRepository()
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	past := base.Add(-time.Hour)
	future := base.Add(time.Hour)
	q1 := sampleQuotation("q1", "QT-1", base, base.Add(time.Hour))
	q1.ValidUntil = &past
	q2 := sampleQuotation("q2", "QT-2", base, base.Add(time.Hour))
	q2.ValidUntil = &future
	q2.CreatedAt = base.Add(time.Minute)
	q3 := sampleQuotation("q3", "QT-3", base, base.Add(time.Hour))
	q3.CustomerID = "cust-2"
	q3.Status = domainquotation.StatusConfirmed
	for _, q := range []*domainquotation.Quotation{q1, q2, q3} {
		require.NoError(t, repo.Save(ctx, q))
	}

	due, err := repo.List(ctx, domainquotation.ListFilter{ValidBefore: base})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, domainquotation.ID("q1"), due[0].ID)

	mine, err := repo.List(ctx, domainquotation.ListFilter{CustomerID: "cust-1"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, domainquotation.ID("q2"), mine[0].ID, "newest first")

	confirmed, err := repo.List(ctx, domainquotation.ListFilter{Statuses: []domainquotation.Status{domainquotation.StatusConfirmed}})
	require.NoError(t, err)
	assert.Len(t, confirmed, 1)

	page, err := repo.List(ctx, domainquotation.ListFilter{Limit: 1, Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestQuotationRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewQuotationRepository()
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, sampleQuotation("q1", "QT-1", start, start.Add(time.Hour))))

	got, err := repo.ByID(ctx, "q1")
	require.NoError(t, err)
	got.Lines[0].Quantity = 99

	again, err := repo.ByID(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Lines[0].Quantity)
}
