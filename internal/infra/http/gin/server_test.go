package ginserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"equiprent/internal/app/bus"
	"equiprent/internal/app/dto"
	orderapp "equiprent/internal/app/handlers/orders"
	authsvc "equiprent/internal/app/services/auth"
	"equiprent/internal/infra/config"
	"equiprent/internal/infra/obs"
	"equiprent/internal/infra/security"
	"equiprent/internal/infra/storage/memory"
)

type apiHarness struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	box := memory.NewOutbox(nil)
	factory := memory.Factory{
		QuotationsRepo: memory.NewQuotationRepository(),
		ProductsRepo:   memory.NewProductRepository(),
		OrdersRepo:     memory.NewOrderRepository(),
		Outbox:         box,
	}
	commandBus, queryBus := bus.Build(bus.Deps{
		UoW:         factory,
		Outbox:      box,
		Idempotency: memory.NewIdempotencyStore(time.Hour),
		Validity:    72 * time.Hour,
	})
	box.Subscribe(orderapp.ConfirmedSubscriber{Commands: commandBus})

	auth := &authsvc.Service{
		Users:      memory.NewUserRepository(),
		Sessions:   memory.NewSessionStore(),
		Passwords:  security.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:     security.TokenGenerator{},
		SessionTTL: time.Hour,
	}
	cfg := config.Config{Env: "test", RateLimitAuth: 100}
	router := NewRouter(cfg, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Quotation:      QuotationHandler{Commands: commandBus, Queries: queryBus},
		Product:        ProductHandler{Commands: commandBus, Queries: queryBus},
		Order:          OrderHandler{Queries: queryBus},
		Auth:           AuthHandler{Service: auth},
		AuthMiddleware: AuthMiddleware{Service: auth}.Handle,
	})
	return &apiHarness{t: t, router: router}
}

func (a *apiHarness) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *apiHarness) register(email string, vendor bool) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": email, "name": "Test User", "password": "correct-horse", "as_vendor": vendor,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp dto.AuthResponse
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func (a *apiHarness) publishedProduct(vendorToken string) string {
	a.t.Helper()
	return a.publishedProductPriced(vendorToken, gin.H{"daily": 1500, "hourly": 300})
}

func (a *apiHarness) publishedProductPriced(vendorToken string, pricing gin.H) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/v1/vendor/products", vendorToken, gin.H{
		"name":             "Concrete mixer",
		"category":         "Construction",
		"stock":            4,
		"currency":         "USD",
		"security_deposit": 2000,
		"pricing":          pricing,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var p dto.Product
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &p))

	rec = a.do(http.MethodPost, "/api/v1/vendor/products/"+p.ID+"/publish", vendorToken, nil)
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	return p.ID
}

func quotationBody(productID string, start, end time.Time) gin.H {
	return gin.H{"lines": []gin.H{{
		"product_id":           productID,
		"quantity":             2,
		"rental_start_date":    start.Format(time.RFC3339),
		"rental_end_date":      end.Format(time.RFC3339),
		"rental_duration_type": "daily",
	}}}
}

func decodeQuotation(t *testing.T, rec *httptest.ResponseRecorder) dto.Quotation {
	t.Helper()
	var q dto.Quotation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	return q
}

func TestCreateQuotationPricesLines(t *testing.T) {
	api := newAPI(t)
	productID := api.publishedProduct(api.register("vendor@example.com", true))
	customer := api.register("customer@example.com", false)
	start := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

	rec := api.do(http.MethodPost, "/api/v1/quotations", customer, quotationBody(productID, start, start.Add(48*time.Hour)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	q := decodeQuotation(t, rec)

	assert.Equal(t, "draft", q.Status)
	assert.NotEmpty(t, q.Number)
	require.Len(t, q.Lines, 1)
	assert.Equal(t, int64(6000), q.TotalAmount.Amount)
	assert.Equal(t, int64(4000), q.DepositAmount.Amount)
	assert.NotNil(t, q.ValidUntil)
}

func TestCreateQuotationRejectsInvertedWindow(t *testing.T) {
	api := newAPI(t)
	productID := api.publishedProduct(api.register("vendor@example.com", true))
	customer := api.register("customer@example.com", false)
	start := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

	for name, end := range map[string]time.Time{
		"equal":    start,
		"inverted": start.Add(-time.Hour),
	} {
		t.Run(name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/v1/quotations", customer, quotationBody(productID, start, end))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"Rental end date must be after start date"}`, rec.Body.String())
		})
	}

	rec := api.do(http.MethodGet, "/api/v1/quotations", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list dto.QuotationList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Items, "rejected quotations are not persisted")
}

func TestCreateQuotationRequiresAuth(t *testing.T) {
	api := newAPI(t)
	rec := api.do(http.MethodPost, "/api/v1/quotations", "", gin.H{"lines": []gin.H{}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/quotations", "not-a-token", gin.H{"lines": []gin.H{}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateQuotationInputErrors(t *testing.T) {
	api := newAPI(t)
	customer := api.register("customer@example.com", false)

	rec := api.do(http.MethodPost, "/api/v1/quotations", customer, gin.H{"lines": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "fields")

	body := quotationBody("p1", time.Now().Add(time.Hour), time.Now().Add(25*time.Hour))
	body["lines"].([]gin.H)[0]["quantity"] = 0
	rec = api.do(http.MethodPost, "/api/v1/quotations", customer, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var invalid struct {
		Fields []struct {
			Field string `json:"field"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &invalid))
	require.Len(t, invalid.Fields, 1)
	assert.Equal(t, "lines[0].quantity", invalid.Fields[0].Field)

	rec = api.do(http.MethodPost, "/api/v1/quotations", customer, quotationBody("missing", time.Now().Add(time.Hour), time.Now().Add(25*time.Hour)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIdempotencyKeyReplaysCreate(t *testing.T) {
	api := newAPI(t)
	productID := api.publishedProduct(api.register("vendor@example.com", true))
	customer := api.register("customer@example.com", false)
	start := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)
	body := quotationBody(productID, start, start.Add(24*time.Hour))

	first := decodeQuotation(t, api.do(http.MethodPost, "/api/v1/quotations", customer, body, "Idempotency-Key", "cart-1"))
	second := decodeQuotation(t, api.do(http.MethodPost, "/api/v1/quotations", customer, body, "Idempotency-Key", "cart-1"))
	third := decodeQuotation(t, api.do(http.MethodPost, "/api/v1/quotations", customer, body))

	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestLifecycleProjectsOrder(t *testing.T) {
	api := newAPI(t)
	productID := api.publishedProduct(api.register("vendor@example.com", true))
	customer := api.register("customer@example.com", false)
	stranger := api.register("other@example.com", false)
	start := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

	created := decodeQuotation(t, api.do(http.MethodPost, "/api/v1/quotations", customer, quotationBody(productID, start, start.Add(24*time.Hour))))
	path := "/api/v1/quotations/" + created.ID

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, path, stranger, nil).Code)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, path+"/confirm", customer, nil).Code)

	rec := api.do(http.MethodPost, path+"/send", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sent", decodeQuotation(t, rec).Status)

	assert.Equal(t, http.StatusConflict, api.do(http.MethodPut, path, customer, quotationBody(productID, start, start.Add(time.Hour))).Code)

	rec = api.do(http.MethodPost, path+"/confirm", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decodeQuotation(t, rec).Status)

	rec = api.do(http.MethodGet, "/api/v1/orders", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var orders dto.OrderList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders.Items, 1)
	assert.Equal(t, created.ID, orders.Items[0].QuotationID)
	assert.Equal(t, "pending", orders.Items[0].Status)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/orders/"+orders.Items[0].ID, stranger, nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/orders/"+orders.Items[0].ID, customer, nil).Code)
}

func TestDeleteDraftQuotation(t *testing.T) {
	api := newAPI(t)
	productID := api.publishedProduct(api.register("vendor@example.com", true))
	customer := api.register("customer@example.com", false)
	start := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

	created := decodeQuotation(t, api.do(http.MethodPost, "/api/v1/quotations", customer, quotationBody(productID, start, start.Add(24*time.Hour))))
	path := "/api/v1/quotations/" + created.ID

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, path, customer, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, path, customer, nil).Code)
}

func TestRoleRestrictedRoutes(t *testing.T) {
	api := newAPI(t)
	customer := api.register("customer@example.com", false)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/v1/admin/quotations/expire-due", customer, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/v1/vendor/products", customer, gin.H{
		"name": "x", "currency": "USD", "pricing": gin.H{"daily": 1},
	}).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/v1/quotations?limit=ten", customer, nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/v1/quotations?status=archived", customer, nil).Code)
}

func TestCatalogHidesUnpublishedProducts(t *testing.T) {
	api := newAPI(t)
	vendor := api.register("vendor@example.com", true)
	published := api.publishedProduct(vendor)

	rec := api.do(http.MethodPost, "/api/v1/vendor/products", vendor, gin.H{
		"name": "Draft lift", "currency": "USD", "pricing": gin.H{"weekly": 90000},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var draft dto.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &draft))

	rec = api.do(http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list dto.ProductList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, published, list.Items[0].ID)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/products/"+draft.ID, "", nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/products/"+draft.ID, vendor, nil).Code)
}

func TestUploadImageWithoutStorage(t *testing.T) {
	api := newAPI(t)
	vendor := api.register("vendor@example.com", true)
	productID := api.publishedProduct(vendor)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="mixer.png"`)
	header.Set("Content-Type", "image/png")
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/products/"+productID+"/images", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+vendor)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthMeAndLogout(t *testing.T) {
	api := newAPI(t)
	token := api.register("customer@example.com", false)

	rec := api.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile dto.UserProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "customer@example.com", profile.Email)
	assert.Equal(t, []string{"customer"}, profile.Roles)
	assert.False(t, profile.Vendor)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodPost, "/api/v1/auth/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/auth/me", token, nil).Code)

	rec = api.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "customer@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterRejections(t *testing.T) {
	api := newAPI(t)
	api.register("customer@example.com", false)

	rec := api.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "customer@example.com", "name": "Dup", "password": "password123"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "short@example.com", "name": "Short", "password": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"name": "No email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateQuotationTotalIsSumOfLineSubtotals(t *testing.T) {
	api := newAPI(t)
	productID := api.publishedProduct(api.register("vendor@example.com", true))
	customer := api.register("customer@example.com", false)
	start := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

	rec := api.do(http.MethodPost, "/api/v1/quotations", customer, gin.H{"lines": []gin.H{
		{
			"product_id":           productID,
			"quantity":             2,
			"rental_start_date":    start.Format(time.RFC3339),
			"rental_end_date":      start.Add(48 * time.Hour).Format(time.RFC3339),
			"rental_duration_type": "daily",
		},
		{
			"product_id":           productID,
			"quantity":             3,
			"rental_start_date":    start.Format(time.RFC3339),
			"rental_end_date":      start.Add(90 * time.Minute).Format(time.RFC3339),
			"rental_duration_type": "hourly",
		},
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	q := decodeQuotation(t, rec)
	require.Len(t, q.Lines, 2)

	var sum int64
	for _, line := range q.Lines {
		assert.Equal(t, line.UnitPrice.Amount*int64(line.Quantity), line.Subtotal.Amount)
		sum += line.Subtotal.Amount
	}
	assert.Equal(t, int64(6000), q.Lines[0].Subtotal.Amount)
	assert.Equal(t, int64(1800), q.Lines[1].Subtotal.Amount)
	assert.Equal(t, sum, q.TotalAmount.Amount)
}

func TestCreateQuotationRejectsOutOfRangeAmounts(t *testing.T) {
	api := newAPI(t)
	vendor := api.register("vendor@example.com", true)
	productID := api.publishedProduct(vendor)
	pricey := api.publishedProductPriced(vendor, gin.H{"daily": int64(4_000_000_000_000_000_000)})
	customer := api.register("customer@example.com", false)
	start := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

	line := func(product string, qty int64, extra gin.H) gin.H {
		l := gin.H{
			"product_id":           product,
			"quantity":             qty,
			"rental_start_date":    start.Format(time.RFC3339),
			"rental_end_date":      start.Add(24 * time.Hour).Format(time.RFC3339),
			"rental_duration_type": "daily",
		}
		for k, v := range extra {
			l[k] = v
		}
		return gin.H{"lines": []gin.H{l}}
	}

	cases := map[string]gin.H{
		"wrapping quantity":    line(productID, 3074457345618258603, nil),
		"quantity above limit": line(productID, 10001, nil),
		"huge duration value":  line(productID, 1, gin.H{"rental_duration_value": 1e300}),
		"subtotal overflows":   line(pricey, 3, nil),
		"unit price overflows": line(pricey, 1, gin.H{"rental_duration_value": 3}),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/v1/quotations", customer, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := api.do(http.MethodPost, "/api/v1/quotations", customer, line(productID, 10000, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	q := decodeQuotation(t, rec)
	assert.Equal(t, int64(15_000_000), q.TotalAmount.Amount)
	assert.Equal(t, int64(20_000_000), q.DepositAmount.Amount)
}
