package quotations_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equiprent/internal/app/actor"
	"equiprent/internal/app/commands"
	"equiprent/internal/app/dto"
	"equiprent/internal/app/handlers/quotations"
	"equiprent/internal/app/middleware"
	"equiprent/internal/app/queries"
	"equiprent/internal/app/validation"
	domainproduct "equiprent/internal/domain/product"
	domainquotation "equiprent/internal/domain/quotation"
	"equiprent/internal/domain/shared/money"
	domainuser "equiprent/internal/domain/user"
	"equiprent/internal/infra/storage/memory"
)

type recordingMetrics struct {
	rejected    int
	transitions []string
}

func (m *recordingMetrics) ValidationFailed() { m.rejected++ }

func (m *recordingMetrics) Transitioned(from, to domainquotation.Status) {
	m.transitions = append(m.transitions, string(from)+"->"+string(to))
}

type harness struct {
	commands   commands.Bus
	queries    queries.Bus
	quotations *memory.QuotationRepository
	products   *memory.ProductRepository
	metrics    *recordingMetrics
	now        time.Time
}

var (
	customer = actor.Actor{UserID: "cust-1", Roles: []domainuser.Role{domainuser.RoleCustomer}}
	stranger = actor.Actor{UserID: "cust-2", Roles: []domainuser.Role{domainuser.RoleCustomer}}
	admin    = actor.Actor{UserID: "admin-1", Roles: []domainuser.Role{domainuser.RoleAdmin}}
)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		quotations: memory.NewQuotationRepository(),
		products:   memory.NewProductRepository(),
		metrics:    &recordingMetrics{},
		now:        time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	box := memory.NewOutbox(nil)
	factory := memory.Factory{
		QuotationsRepo: h.quotations,
		ProductsRepo:   h.products,
		OrdersRepo:     memory.NewOrderRepository(),
		Outbox:         box,
	}
	clock := func() time.Time { return h.now }
	seq := 0
	numbers := func(time.Time) string {
		seq++
		return fmt.Sprintf("QT-TEST-%04d", seq)
	}

	reg := commands.NewRegistry()
	commands.Register[quotations.CreateQuotationCommand, *dto.Quotation](reg, quotations.CreateQuotationCommand{}.Key(), &quotations.CreateQuotationHandler{
		Outbox: box, Metrics: h.metrics, Validity: 72 * time.Hour, Now: clock,
		Numbers: numbers,
	})
	commands.Register[quotations.UpdateQuotationCommand, *dto.Quotation](reg, quotations.UpdateQuotationCommand{}.Key(), &quotations.UpdateQuotationHandler{
		Outbox: box, Metrics: h.metrics, Now: clock,
	})
	transitions := &quotations.TransitionHandler{Outbox: box, Metrics: h.metrics, Now: clock}
	commands.Register(reg, quotations.SendQuotationCommand{}.Key(), transitions.Send())
	commands.Register(reg, quotations.ConfirmQuotationCommand{}.Key(), transitions.Confirm())
	commands.Register(reg, quotations.ExpireQuotationCommand{}.Key(), transitions.Expire())
	commands.Register[quotations.DeleteQuotationCommand, *quotations.DeleteQuotationResult](reg, quotations.DeleteQuotationCommand{}.Key(), &quotations.DeleteQuotationHandler{Outbox: box})
	commands.Register[quotations.ExpireDueQuotationsCommand, *quotations.ExpireDueQuotationsResult](reg, quotations.ExpireDueQuotationsCommand{}.Key(), &quotations.ExpireDueQuotationsHandler{Outbox: box, Metrics: h.metrics})

	h.commands = middleware.ChainCommands(reg,
		middleware.Authorization(middleware.RoleAuthorizer{}),
		middleware.Validation(validation.New()),
		middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil),
		middleware.OutboxFlush(box, nil),
		middleware.Transaction(factory, nil),
	)

	qreg := queries.NewRegistry()
	queries.Register[quotations.GetQuotationQuery, *dto.Quotation](qreg, quotations.GetQuotationQuery{}.Key(), &quotations.GetQuotationHandler{UoWFactory: factory})
	queries.Register[quotations.ListQuotationsQuery, *dto.QuotationList](qreg, quotations.ListQuotationsQuery{}.Key(), &quotations.ListQuotationsHandler{UoWFactory: factory})
	h.queries = middleware.ChainQueries(qreg, middleware.QueryValidation(validation.New()))

	product, err := domainproduct.New(domainproduct.CreateParams{
		ID:       "drill",
		VendorID: "vendor-1",
		Params: domainproduct.Params{
			Name:            "Hammer drill",
			Stock:           5,
			SecurityDeposit: money.Must(2000, "USD"),
			Pricing: domainproduct.Pricing{
				domainproduct.RateHourly: money.Must(300, "USD"),
				domainproduct.RateDaily:  money.Must(1500, "USD"),
			},
		},
	})
	require.NoError(t, err)
	product.Publish(h.now)
	require.NoError(t, h.products.Save(context.Background(), product))
	return h
}

func as(a actor.Actor) context.Context {
	return actor.WithActor(context.Background(), a)
}

func (h *harness) line(start time.Time, hours int, qty int) quotations.LineInput {
	return quotations.LineInput{
		ProductID:    "drill",
		Quantity:     qty,
		RentalStart:  start,
		RentalEnd:    start.Add(time.Duration(hours) * time.Hour),
		DurationType: "daily",
	}
}

func (h *harness) create(t *testing.T, lines ...quotations.LineInput) *dto.Quotation {
	t.Helper()
	q, err := commands.Dispatch[quotations.CreateQuotationCommand, *dto.Quotation](as(customer), h.commands, quotations.CreateQuotationCommand{Lines: lines})
	require.NoError(t, err)
	return q
}

func TestCreatePricesLinesFromProductTable(t *testing.T) {
	h := newHarness(t)
	start := h.now.Add(24 * time.Hour)

	q := h.create(t, h.line(start, 48, 2), h.line(start, 25, 1))

	assert.Equal(t, "draft", q.Status)
	assert.Equal(t, "cust-1", q.CustomerID)
	require.Len(t, q.Lines, 2)
	assert.Equal(t, int64(3000), q.Lines[0].UnitPrice.Amount)
	assert.Equal(t, int64(6000), q.Lines[0].Subtotal.Amount)
	assert.Equal(t, int64(3000), q.Lines[1].Subtotal.Amount)
	assert.Equal(t, money.Must(9000, "USD"), q.TotalAmount)
	assert.Equal(t, money.Must(6000, "USD"), q.DepositAmount)
	require.NotNil(t, q.ValidUntil)
	assert.Equal(t, h.now.Add(72*time.Hour), *q.ValidUntil)
}

func TestCreateRejectsInvertedWindowAndStoresNothing(t *testing.T) {
	h := newHarness(t)
	start := h.now.Add(24 * time.Hour)
	bad := h.line(start, 24, 1)
	bad.RentalEnd = start

	_, err := commands.Dispatch[quotations.CreateQuotationCommand, *dto.Quotation](as(customer), h.commands,
		quotations.CreateQuotationCommand{Lines: []quotations.LineInput{h.line(start, 24, 1), bad}})

	var vErr *domainquotation.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Rental end date must be after start date", err.Error())
	assert.Equal(t, 1, vErr.Line)
	assert.Equal(t, 1, h.metrics.rejected)

	all, err := h.quotations.List(context.Background(), domainquotation.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateRequiresLinesAndCustomerRole(t *testing.T) {
	h := newHarness(t)

	_, err := commands.Dispatch[quotations.CreateQuotationCommand, *dto.Quotation](as(customer), h.commands, quotations.CreateQuotationCommand{})
	assert.ErrorIs(t, err, validation.ErrInvalidInput)

	vendor := actor.Actor{UserID: "v", Roles: []domainuser.Role{domainuser.RoleVendor}}
	_, err = commands.Dispatch[quotations.CreateQuotationCommand, *dto.Quotation](as(vendor), h.commands,
		quotations.CreateQuotationCommand{Lines: []quotations.LineInput{h.line(h.now, 1, 1)}})
	assert.ErrorIs(t, err, actor.ErrForbidden)

	_, err = commands.Dispatch[quotations.CreateQuotationCommand, *dto.Quotation](context.Background(), h.commands,
		quotations.CreateQuotationCommand{Lines: []quotations.LineInput{h.line(h.now, 1, 1)}})
	assert.ErrorIs(t, err, actor.ErrUnauthenticated)
}

func TestCreateIsIdempotent(t *testing.T) {
	h := newHarness(t)
	cmd := quotations.CreateQuotationCommand{Lines: []quotations.LineInput{h.line(h.now, 24, 1)}, IdempotencyKeyV: "cust-1:abc"}

	first, err := commands.Dispatch[quotations.CreateQuotationCommand, *dto.Quotation](as(customer), h.commands, cmd)
	require.NoError(t, err)
	second, err := commands.Dispatch[quotations.CreateQuotationCommand, *dto.Quotation](as(customer), h.commands, cmd)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	all, err := h.quotations.List(context.Background(), domainquotation.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLifecycleThroughBus(t *testing.T) {
	h := newHarness(t)
	q := h.create(t, h.line(h.now, 24, 1))

	_, err := commands.Dispatch[quotations.ConfirmQuotationCommand, *dto.Quotation](as(customer), h.commands, quotations.ConfirmQuotationCommand{QuotationID: q.ID})
	assert.ErrorIs(t, err, domainquotation.ErrInvalidTransition)

	sent, err := commands.Dispatch[quotations.SendQuotationCommand, *dto.Quotation](as(customer), h.commands, quotations.SendQuotationCommand{QuotationID: q.ID})
	require.NoError(t, err)
	assert.Equal(t, "sent", sent.Status)

	_, err = commands.Dispatch[quotations.UpdateQuotationCommand, *dto.Quotation](as(customer), h.commands,
		quotations.UpdateQuotationCommand{QuotationID: q.ID, Lines: []quotations.LineInput{h.line(h.now, 48, 1)}})
	assert.ErrorIs(t, err, domainquotation.ErrNotDraft)

	confirmed, err := commands.Dispatch[quotations.ConfirmQuotationCommand, *dto.Quotation](as(customer), h.commands, quotations.ConfirmQuotationCommand{QuotationID: q.ID})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", confirmed.Status)
	assert.Equal(t, []string{"draft->sent", "sent->confirmed"}, h.metrics.transitions)

	_, err = commands.Dispatch[quotations.ExpireQuotationCommand, *dto.Quotation](as(admin), h.commands, quotations.ExpireQuotationCommand{QuotationID: q.ID})
	assert.ErrorIs(t, err, domainquotation.ErrInvalidTransition)
}

func TestOnlyOwnerOrAdminManages(t *testing.T) {
	h := newHarness(t)
	q := h.create(t, h.line(h.now, 24, 1))

	_, err := commands.Dispatch[quotations.SendQuotationCommand, *dto.Quotation](as(stranger), h.commands, quotations.SendQuotationCommand{QuotationID: q.ID})
	assert.ErrorIs(t, err, domainquotation.ErrNotOwned)

	_, err = queries.Ask[quotations.GetQuotationQuery, *dto.Quotation](as(stranger), h.queries, quotations.GetQuotationQuery{QuotationID: q.ID})
	assert.ErrorIs(t, err, domainquotation.ErrNotOwned)

	_, err = commands.Dispatch[quotations.ExpireQuotationCommand, *dto.Quotation](as(customer), h.commands, quotations.ExpireQuotationCommand{QuotationID: q.ID})
	assert.ErrorIs(t, err, actor.ErrForbidden)

	expired, err := commands.Dispatch[quotations.ExpireQuotationCommand, *dto.Quotation](as(admin), h.commands, quotations.ExpireQuotationCommand{QuotationID: q.ID})
	require.NoError(t, err)
	assert.Equal(t, "expired", expired.Status)
}

func TestUpdateRepricesDraft(t *testing.T) {
	h := newHarness(t)
	q := h.create(t, h.line(h.now, 24, 1))

	updated, err := commands.Dispatch[quotations.UpdateQuotationCommand, *dto.Quotation](as(customer), h.commands,
		quotations.UpdateQuotationCommand{QuotationID: q.ID, Lines: []quotations.LineInput{h.line(h.now, 72, 2)}, Notes: "site B"})
	require.NoError(t, err)
	assert.Equal(t, int64(9000), updated.TotalAmount.Amount)
	assert.Equal(t, "site B", updated.Notes)

	bad := h.line(h.now, 1, 1)
	bad.RentalEnd = h.now.Add(-time.Hour)
	_, err = commands.Dispatch[quotations.UpdateQuotationCommand, *dto.Quotation](as(customer), h.commands,
		quotations.UpdateQuotationCommand{QuotationID: q.ID, Lines: []quotations.LineInput{bad}})
	assert.ErrorIs(t, err, domainquotation.ErrValidation)

	stored, err := h.quotations.ByID(context.Background(), domainquotation.ID(q.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(9000), stored.TotalAmount.Amount)
}

func TestDeleteOnlyDraft(t *testing.T) {
	h := newHarness(t)
	draft := h.create(t, h.line(h.now, 24, 1))
	sent := h.create(t, h.line(h.now, 24, 1))
	_, err := commands.Dispatch[quotations.SendQuotationCommand, *dto.Quotation](as(customer), h.commands, quotations.SendQuotationCommand{QuotationID: sent.ID})
	require.NoError(t, err)

	_, err = commands.Dispatch[quotations.DeleteQuotationCommand, *quotations.DeleteQuotationResult](as(customer), h.commands, quotations.DeleteQuotationCommand{QuotationID: sent.ID})
	assert.ErrorIs(t, err, domainquotation.ErrNotDraft)

	_, err = commands.Dispatch[quotations.DeleteQuotationCommand, *quotations.DeleteQuotationResult](as(customer), h.commands, quotations.DeleteQuotationCommand{QuotationID: draft.ID})
	require.NoError(t, err)
	_, err = h.quotations.ByID(context.Background(), domainquotation.ID(draft.ID))
	assert.ErrorIs(t, err, domainquotation.ErrNotFound)
}

func TestExpireDueQuotations(t *testing.T) {
	h := newHarness(t)
	due := h.create(t, h.line(h.now, 24, 1))
	confirmed := h.create(t, h.line(h.now, 24, 1))
	for _, step := range []func() error{
		func() error {
			_, err := commands.Dispatch[quotations.SendQuotationCommand, *dto.Quotation](as(customer), h.commands, quotations.SendQuotationCommand{QuotationID: confirmed.ID})
			return err
		},
		func() error {
			_, err := commands.Dispatch[quotations.ConfirmQuotationCommand, *dto.Quotation](as(customer), h.commands, quotations.ConfirmQuotationCommand{QuotationID: confirmed.ID})
			return err
		},
	} {
		require.NoError(t, step())
	}

	h.now = h.now.Add(73 * time.Hour)
	fresh := h.create(t, h.line(h.now, 24, 1))

	res, err := commands.Dispatch[quotations.ExpireDueQuotationsCommand, *quotations.ExpireDueQuotationsResult](
		actor.WithActor(context.Background(), actor.System), h.commands, quotations.ExpireDueQuotationsCommand{At: h.now})
	require.NoError(t, err)
	assert.Equal(t, []string{due.ID}, res.Expired)

	for id, want := range map[string]domainquotation.Status{
		due.ID:       domainquotation.StatusExpired,
		confirmed.ID: domainquotation.StatusConfirmed,
		fresh.ID:     domainquotation.StatusDraft,
	} {
		q, err := h.quotations.ByID(context.Background(), domainquotation.ID(id))
		require.NoError(t, err)
		assert.Equal(t, want, q.Status, id)
	}
}

func TestConfirmAfterValidityElapsed(t *testing.T) {
	h := newHarness(t)
	q := h.create(t, h.line(h.now, 24, 1))
	_, err := commands.Dispatch[quotations.SendQuotationCommand, *dto.Quotation](as(customer), h.commands, quotations.SendQuotationCommand{QuotationID: q.ID})
	require.NoError(t, err)

	h.now = h.now.Add(100 * time.Hour)
	_, err = commands.Dispatch[quotations.ConfirmQuotationCommand, *dto.Quotation](as(customer), h.commands, quotations.ConfirmQuotationCommand{QuotationID: q.ID})
	assert.ErrorIs(t, err, domainquotation.ErrValidityElapsed)
}

func TestListScopesToActor(t *testing.T) {
	h := newHarness(t)
	h.create(t, h.line(h.now, 24, 1))
	h.create(t, h.line(h.now, 24, 1))

	mine, err := queries.Ask[quotations.ListQuotationsQuery, *dto.QuotationList](as(customer), h.queries, quotations.ListQuotationsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, mine.Total)

	theirs, err := queries.Ask[quotations.ListQuotationsQuery, *dto.QuotationList](as(stranger), h.queries, quotations.ListQuotationsQuery{})
	require.NoError(t, err)
	assert.Zero(t, theirs.Total)

	all, err := queries.Ask[quotations.ListQuotationsQuery, *dto.QuotationList](as(admin), h.queries, quotations.ListQuotationsQuery{Status: "draft"})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	_, err = queries.Ask[quotations.ListQuotationsQuery, *dto.QuotationList](as(admin), h.queries, quotations.ListQuotationsQuery{Status: "bogus"})
	assert.ErrorIs(t, err, validation.ErrInvalidInput)
}

func TestCreateRejectsUnpublishedProduct(t *testing.T) {
	h := newHarness(t)
	p, err := h.products.ByID(context.Background(), "drill")
	require.NoError(t, err)
	p.Unpublish(h.now)
	require.NoError(t, h.products.Save(context.Background(), p))

	_, err = commands.Dispatch[quotations.CreateQuotationCommand, *dto.Quotation](as(customer), h.commands,
		quotations.CreateQuotationCommand{Lines: []quotations.LineInput{h.line(h.now, 24, 1)}})
	assert.ErrorIs(t, err, quotations.ErrProductUnavailable)
}
