package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/bus"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/catalog"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/checkout"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/domain"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/guest"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/repository/memory"
	apperrors "github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/errors"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/health"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/middleware"
)

const testJWTSecret = "test-secret"

func strptr(s string) *string { return &s }

// fakeUpstream records calls and returns a canned cart.
type fakeUpstream struct {
	cart      *domain.Cart
	err       error
	lastToken string
	calls     []string
}

func (f *fakeUpstream) Fetch(_ context.Context, token string) (*domain.Cart, error) {
	f.lastToken = token
	f.calls = append(f.calls, "fetch")
	return f.cart, f.err
}

func (f *fakeUpstream) AddItem(_ context.Context, token string, key domain.ItemKey, quantity int) (*domain.Cart, error) {
	f.lastToken = token
	f.calls = append(f.calls, "add:"+key.String())
	return f.cart, f.err
}

func (f *fakeUpstream) UpdateItem(_ context.Context, token, itemID string, quantity int) (*domain.Cart, error) {
	f.lastToken = token
	f.calls = append(f.calls, "update:"+itemID)
	return f.cart, f.err
}

func (f *fakeUpstream) RemoveItem(_ context.Context, token, itemID string) (*domain.Cart, error) {
	f.lastToken = token
	f.calls = append(f.calls, "remove:"+itemID)
	return f.cart, f.err
}

func (f *fakeUpstream) Clear(_ context.Context, token string) (*domain.Cart, error) {
	f.lastToken = token
	f.calls = append(f.calls, "clear")
	return f.cart, f.err
}

func newTestRouter(t *testing.T) (http.Handler, *fakeUpstream) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := bus.New(logger)
	guestStore := guest.NewStore(memory.NewGuestCartRepository(), b, logger)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	checkoutSvc := checkout.NewService(checkout.NewSelectionStore(client, 30*time.Minute), logger)

	cat, err := catalog.NewFromEmbedded()
	require.NoError(t, err)

	upstream := &fakeUpstream{}

	router := NewRouter(
		NewCartHandler(guestStore, upstream, cat, logger),
		NewCheckoutHandler(guestStore, upstream, checkoutSvc, logger),
		NewCatalogHandler(cat, logger),
		health.NewHandler(),
		logger,
		RouterConfig{
			JWTSecret:  testJWTSecret,
			SessionTTL: 72 * time.Hour,
			CORS:       middleware.DefaultCORSConfig(),
		},
	)
	return router, upstream
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if mutate != nil {
		mutate(req)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func asGuest(sessionID string) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: GuestSessionCookie, Value: sessionID})
	}
}

func signedToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return s
}

func asUser(t *testing.T, userID string) func(*http.Request) {
	tok := signedToken(t, userID)
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
		r.AddCookie(&http.Cookie{Name: GuestSessionCookie, Value: "sess-ignored"})
	}
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) *domain.Cart {
	t.Helper()
	var resp struct {
		Data *domain.Cart `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)
	return resp.Data
}

// ---------------------------------------------------------------------------
// Session middleware
// ---------------------------------------------------------------------------

func TestSession_MintsGuestCookie(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cart", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var minted *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == GuestSessionCookie {
			minted = c
		}
	}
	require.NotNil(t, minted, "first visit mints the session cookie")
	assert.NotEmpty(t, minted.Value)
	assert.True(t, minted.HttpOnly)
}

func TestSession_KeepsExistingCookie(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cart", nil, asGuest("sess-keep"))
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		assert.NotEqual(t, GuestSessionCookie, c.Name, "existing session must not be reissued")
	}
}

func TestSession_RejectsInvalidToken(t *testing.T) {
	router, upstream := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cart", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-jwt")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, upstream.calls, "rejected requests never reach the cart service")
}

// ---------------------------------------------------------------------------
// Guest cart flow
// ---------------------------------------------------------------------------

func TestGuestCart_FullFlow(t *testing.T) {
	router, upstream := newTestRouter(t)
	session := asGuest("sess-flow")

	// Empty to start.
	rec := doJSON(t, router, http.MethodGet, "/api/v1/cart", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, rec)
	assert.Empty(t, cart.Items)

	// Add a catalogue product; the snapshot comes from the catalogue.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/cart/items",
		AddItemRequest{ItemType: "product", ProductID: "prod-001", Quantity: 2}, session)
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decodeCart(t, rec)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Digital Thermometer", cart.Items[0].Name)
	assert.Equal(t, 249.0, cart.Items[0].Price)
	assert.Equal(t, 498.0, cart.Subtotal)
	assert.Equal(t, 50.0, cart.DeliveryFee)

	// Update quantity past the free-delivery threshold.
	rec = doJSON(t, router, http.MethodPut, "/api/v1/cart/items/product:prod-001",
		UpdateQuantityRequest{Quantity: 3}, session)
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decodeCart(t, rec)
	assert.Equal(t, 747.0, cart.Subtotal)
	assert.Equal(t, 0.0, cart.DeliveryFee)

	// Count endpoint.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/cart/count", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	var countResp struct {
		Data struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &countResp))
	assert.Equal(t, 3, countResp.Data.Count)

	// Remove the line.
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/cart/items/product:prod-001", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Items)

	assert.Empty(t, upstream.calls, "guest flow must never touch the cart service")
}

func TestGuestCart_AddUnknownCatalogueEntry(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/items",
		AddItemRequest{ItemType: "medicine", MedicineID: "med-does-not-exist", Quantity: 1}, asGuest("s"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGuestCart_ValidationErrors(t *testing.T) {
	router, _ := newTestRouter(t)
	session := asGuest("s")

	// Unknown item type.
	rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/items",
		AddItemRequest{ItemType: "widget", ProductID: "prod-001", Quantity: 1}, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing identifier for the declared type.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/cart/items",
		AddItemRequest{ItemType: "medicine", Quantity: 1}, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed item key in the path.
	rec = doJSON(t, router, http.MethodPut, "/api/v1/cart/items/justanid",
		UpdateQuantityRequest{Quantity: 2}, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuestCart_SessionsAreIsolated(t *testing.T) {
	router, _ := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/cart/items",
		AddItemRequest{ItemType: "product", ProductID: "prod-004", Quantity: 1}, asGuest("sess-a"))

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cart", nil, asGuest("sess-b"))
	assert.Empty(t, decodeCart(t, rec).Items)
}

// ---------------------------------------------------------------------------
// Authenticated dispatch
// ---------------------------------------------------------------------------

func TestAuthenticatedCart_DispatchesToUpstream(t *testing.T) {
	router, upstream := newTestRouter(t)
	upstream.cart = &domain.Cart{Items: []domain.CartItem{
		{ItemType: domain.ItemTypeMedicine, MedicineID: strptr("m1"), Quantity: 2, Price: 250},
	}}
	upstream.cart.RecomputeTotals()

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cart", nil, asUser(t, "user-9"))
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, rec)
	assert.Equal(t, 500.0, cart.Subtotal)
	assert.Equal(t, []string{"fetch"}, upstream.calls)
	assert.NotEmpty(t, upstream.lastToken)
}

func TestAuthenticatedCart_AddGoesUpstream(t *testing.T) {
	router, upstream := newTestRouter(t)
	upstream.cart = domain.NewEmptyCart()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/items",
		AddItemRequest{ItemType: "product", ProductID: "prod-001", Quantity: 1}, asUser(t, "user-9"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"add:product:prod-001"}, upstream.calls)
}

func TestAuthenticatedCart_UpstreamErrorPropagates(t *testing.T) {
	router, upstream := newTestRouter(t)
	upstream.err = apperrors.Unavailable("cart service down")

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cart", nil, asUser(t, "user-9"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthenticatedCart_NilCartBecomesEmpty(t *testing.T) {
	router, upstream := newTestRouter(t)
	upstream.cart = nil
	upstream.err = nil

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cart", nil, asUser(t, "user-9"))
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, rec)
	assert.Empty(t, cart.Items)
	assert.Equal(t, domain.StandardDeliveryFee, cart.DeliveryFee)
}

// ---------------------------------------------------------------------------
// Checkout
// ---------------------------------------------------------------------------

func TestCheckout_SelectionFlow(t *testing.T) {
	router, _ := newTestRouter(t)
	session := asGuest("sess-co")

	doJSON(t, router, http.MethodPost, "/api/v1/cart/items",
		AddItemRequest{ItemType: "product", ProductID: "prod-001", Quantity: 1}, session)
	doJSON(t, router, http.MethodPost, "/api/v1/cart/items",
		AddItemRequest{ItemType: "medicine", MedicineID: "med-001", Quantity: 2}, session)

	// First view selects everything.
	rec := doJSON(t, router, http.MethodGet, "/api/v1/checkout/selection", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data SelectionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.ElementsMatch(t, []string{"product:prod-001", "medicine:med-001"}, resp.Data.Selected)
	assert.Equal(t, 319.0, resp.Data.Summary.Subtotal)

	// Narrow to the medicine only.
	rec = doJSON(t, router, http.MethodPut, "/api/v1/checkout/selection",
		SetSelectionRequest{Keys: []string{"medicine:med-001"}}, session)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"medicine:med-001"}, resp.Data.Selected)
	assert.Equal(t, 70.0, resp.Data.Summary.Subtotal)

	// Begin checkout for the selected subset.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/checkout", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)

	var begin struct {
		Data checkout.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &begin))
	require.Len(t, begin.Data.Items, 1)
	assert.Equal(t, "med-001", *begin.Data.Items[0].MedicineID)
}

func TestCheckout_BeginEmptyCartRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout", nil, asGuest("sess-empty"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
}

// ---------------------------------------------------------------------------
// Catalogue endpoints
// ---------------------------------------------------------------------------

func TestCatalog_ListAndDetail(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/products?per_page=5", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data       []catalog.Product `json:"data"`
		TotalCount int               `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Data, 5)
	assert.Greater(t, list.TotalCount, 5)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/medicines/paracetamol-500mg", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Paracetamol")

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products/missing-thing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalog_Search(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/search?q=paracetamol", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "paracetamol-500mg")

	rec = doJSON(t, router, http.MethodGet, "/api/v1/search", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---------------------------------------------------------------------------
// Rate limiting
// ---------------------------------------------------------------------------

func TestRateLimit_Enforced(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := RateLimit(1, 1, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different client keeps its own bucket.
	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVisitorStore_Cleanup(t *testing.T) {
	s := newVisitorStore(10, 10, time.Minute)
	now := time.Now()
	s.nowFunc = func() time.Time { return now }

	s.getVisitor("1.2.3.4")
	s.getVisitor("5.6.7.8")
	require.Equal(t, 2, s.len())

	s.nowFunc = func() time.Time { return now.Add(2 * time.Minute) }
	s.cleanup()
	assert.Equal(t, 0, s.len())
}

func TestSession_PopulatesUserIDForRequestLogging(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var got string
	h := Session(testJWTSecret, time.Hour, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = middleware.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	asUser(t, "u-77")(req)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "u-77", got)

	// Guests carry no user id.
	got = "sentinel"
	guestReq := httptest.NewRequest(http.MethodGet, "/cart", nil)
	asGuest("sess-1")(guestReq)
	h.ServeHTTP(httptest.NewRecorder(), guestReq)
	assert.Empty(t, got)
}
