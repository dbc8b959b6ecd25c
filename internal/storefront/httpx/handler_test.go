package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldomata/storefront-checkout/internal/cart"
	"github.com/aldomata/storefront-checkout/internal/checkout"
	"github.com/aldomata/storefront-checkout/internal/checkout/domain"
	"github.com/aldomata/storefront-checkout/internal/payment"
	"github.com/aldomata/storefront-checkout/internal/pkg/apperr"
)

type stubCheckout struct {
	result *checkout.Result
	order  *domain.Order
	err    error

	gotReq checkout.Request
}

func (s *stubCheckout) Checkout(_ context.Context, req checkout.Request) (*checkout.Result, error) {
	s.gotReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubCheckout) GetOrder(context.Context, string) (*domain.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

type stubIntents struct {
	result *payment.IntentResult
	err    error
}

func (s *stubIntents) CreateForOrder(context.Context, string, string) (*payment.IntentResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubConfirms struct {
	result *payment.ConfirmResult
	err    error

	gotIntentID string
	gotOrderID  string
}

func (s *stubConfirms) Confirm(_ context.Context, intentID, orderID string) (*payment.ConfirmResult, error) {
	s.gotIntentID = intentID
	s.gotOrderID = orderID
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type memCartStorage struct {
	carts map[string]*cart.Cart
}

func (m *memCartStorage) Load(_ context.Context, cartID string) (*cart.Cart, error) {
	c, ok := m.carts[cartID]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	return c, nil
}

func (m *memCartStorage) Save(_ context.Context, c *cart.Cart) error {
	m.carts[c.ID] = c
	return nil
}

func (m *memCartStorage) Delete(_ context.Context, cartID string) error {
	delete(m.carts, cartID)
	return nil
}

func newTestRouter(co *stubCheckout, in *stubIntents, cf *stubConfirms) http.Handler {
	carts := cart.NewStore(&memCartStorage{carts: map[string]*cart.Cart{}})
	webhook := NewWebhookHandler("whsec_test", &fakeWebhookGateway{}, cf)
	return NewRouter(NewHandler(co, in, cf), NewCartHandler(carts), webhook)
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	router.ServeHTTP(rec, req)
	return rec
}

func validCheckoutRequest() CheckoutRequest {
	return CheckoutRequest{
		Items: []CheckoutItemDTO{
			{Kind: "product", ItemID: "sku-1", Quantity: 2},
		},
		FullName:        "Dana Cruz",
		Email:           "dana@example.com",
		Phone:           "555-0100",
		DeliveryAddress: "1 Main St",
	}
}

func TestCheckout_Created(t *testing.T) {
	co := &stubCheckout{result: &checkout.Result{
		OrderID:       "ord-1",
		OrderNumber:   "ORD-20260828-AB12CD",
		TotalAmount:   27.50,
		OrderStatus:   domain.OrderPending,
		PaymentStatus: domain.PaymentPending,
	}}
	router := newTestRouter(co, &stubIntents{}, &stubConfirms{})

	rec := postJSON(t, router, "/api/checkout", validCheckoutRequest())

	require.Equal(t, http.StatusCreated, rec.Code)
	var res checkout.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "ord-1", res.OrderID)
	assert.Equal(t, "ORD-20260828-AB12CD", res.OrderNumber)

	require.Len(t, co.gotReq.Lines, 1)
	assert.Equal(t, domain.KindProduct, co.gotReq.Lines[0].Kind)
	assert.Equal(t, 2, co.gotReq.Lines[0].Quantity)
}

func TestCheckout_PassesIdempotencyKeyHeader(t *testing.T) {
	co := &stubCheckout{result: &checkout.Result{OrderID: "ord-1"}}
	router := newTestRouter(co, &stubIntents{}, &stubConfirms{})

	raw, err := json.Marshal(validCheckoutRequest())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", bytes.NewReader(raw))
	req.Header.Set("x-idempotency-key", "idem-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "idem-42", co.gotReq.IdempotencyKey)
}

func TestCheckout_InvalidJSON(t *testing.T) {
	router := newTestRouter(&stubCheckout{}, &stubIntents{}, &stubConfirms{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", bytes.NewReader([]byte("{nope")))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorKindMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", apperr.New(apperr.KindValidation, "no items"), http.StatusBadRequest, "invalid_request"},
		{"not found", apperr.New(apperr.KindNotFound, "user not found"), http.StatusNotFound, "not_found"},
		{"payment incomplete", apperr.New(apperr.KindPaymentIncomplete, "payment not completed"), http.StatusBadRequest, "payment_not_completed"},
		{"gateway", apperr.New(apperr.KindGateway, "payment processor unavailable"), http.StatusBadGateway, "payment_gateway_error"},
		{"persistence", apperr.New(apperr.KindPersistence, "disk full"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&stubCheckout{err: tc.err}, &stubIntents{}, &stubConfirms{})

			rec := postJSON(t, router, "/api/checkout", validCheckoutRequest())

			require.Equal(t, tc.wantStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantCode, body.Error)
		})
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	router := newTestRouter(&stubCheckout{err: apperr.New(apperr.KindPersistence, "sqlite: disk I/O error")}, &stubIntents{}, &stubConfirms{})

	rec := postJSON(t, router, "/api/checkout", validCheckoutRequest())

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sqlite")
}

func TestCreateIntent(t *testing.T) {
	intents := &stubIntents{result: &payment.IntentResult{
		ClientSecret:    "pi_1_secret_x",
		PaymentIntentID: "pi_1",
	}}
	router := newTestRouter(&stubCheckout{}, intents, &stubConfirms{})

	rec := postJSON(t, router, "/api/payment/intent", CreateIntentRequest{OrderID: "ord-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	var res payment.IntentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "pi_1", res.PaymentIntentID)
	assert.Equal(t, "pi_1_secret_x", res.ClientSecret)
}

func TestConfirmPayment(t *testing.T) {
	confirms := &stubConfirms{result: &payment.ConfirmResult{
		OrderID:       "ord-1",
		OrderNumber:   "ORD-20260828-AB12CD",
		PaymentStatus: domain.PaymentCompleted,
		OrderStatus:   domain.OrderConfirmed,
	}}
	router := newTestRouter(&stubCheckout{}, &stubIntents{}, confirms)

	rec := postJSON(t, router, "/api/payment/confirm", ConfirmRequest{
		PaymentIntentID: "pi_1",
		OrderID:         "ord-1",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pi_1", confirms.gotIntentID)
	assert.Equal(t, "ord-1", confirms.gotOrderID)

	var res payment.ConfirmResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, domain.OrderConfirmed, res.OrderStatus)
}

func TestGetOrderByID(t *testing.T) {
	co := &stubCheckout{order: &domain.Order{
		ID:          "ord-1",
		OrderNumber: "ORD-20260828-AB12CD",
		OrderType:   domain.OrderTypeProduct,
		Lines: []domain.OrderLine{
			{Kind: domain.KindProduct, ItemID: "sku-1", ItemName: "Mug", Quantity: 2, UnitPrice: 12.50, LineTotal: 25.0},
		},
		Subtotal:      25.0,
		Tax:           2.50,
		TotalAmount:   27.50,
		PaymentStatus: domain.PaymentPending,
		OrderStatus:   domain.OrderPending,
		CreatedAt:     time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
	}}
	router := newTestRouter(co, &stubIntents{}, &stubConfirms{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/orders/ord-1", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "ORD-20260828-AB12CD", res.OrderNumber)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, "Mug", res.Lines[0].ItemName)
	assert.InDelta(t, 27.50, res.TotalAmount, 1e-9)
}

func TestGetOrderByID_NotFound(t *testing.T) {
	co := &stubCheckout{err: apperr.New(apperr.KindNotFound, "order not found")}
	router := newTestRouter(co, &stubIntents{}, &stubConfirms{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/orders/missing", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(&stubCheckout{}, &stubIntents{}, &stubConfirms{})

	// Unknown cart reads as empty.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart/c1/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var empty CartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.Zero(t, empty.Count)

	// Add the same item twice: quantity increments.
	add := CartAddRequest{Kind: "product", ItemID: "sku-1", DisplayPrice: 12.50}
	rec = postJSON(t, router, "/api/cart/c1/items", add)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = postJSON(t, router, "/api/cart/c1/items", add)
	require.Equal(t, http.StatusOK, rec.Code)

	var c CartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 2, c.Lines[0].Quantity)
	assert.Equal(t, 2, c.Count)
	assert.InDelta(t, 25.0, c.DisplayTotal, 1e-9)

	// Remove the line.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/cart/c1/items/product/sku-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Empty(t, c.Lines)

	// Clear is a 204 even when already empty.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/cart/c1/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCartAddRejectsUnknownKind(t *testing.T) {
	router := newTestRouter(&stubCheckout{}, &stubIntents{}, &stubConfirms{})

	rec := postJSON(t, router, "/api/cart/c1/items", CartAddRequest{Kind: "bundle", ItemID: "sku-1"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
