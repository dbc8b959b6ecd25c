// Package httpx exposes the storefront checkout lifecycle over HTTP: cart
// manipulation, checkout submission, payment intent creation, confirmation
// and the processor webhook.
package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aldomata/storefront-checkout/internal/checkout"
	"github.com/aldomata/storefront-checkout/internal/checkout/domain"
	"github.com/aldomata/storefront-checkout/internal/payment"
	"github.com/aldomata/storefront-checkout/internal/pkg/apperr"
	"github.com/aldomata/storefront-checkout/internal/storefront/httpx/middlewares"
)

// CheckoutService is the slice of the checkout API the handlers need.
type CheckoutService interface {
	Checkout(ctx context.Context, req checkout.Request) (*checkout.Result, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

// IntentCreator creates payment intents for persisted orders.
type IntentCreator interface {
	CreateForOrder(ctx context.Context, orderID, currency string) (*payment.IntentResult, error)
}

// PaymentConfirmer finalizes orders against the gateway's view of the intent.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, intentID, orderID string) (*payment.ConfirmResult, error)
}

type Handler struct {
	checkout CheckoutService
	intents  IntentCreator
	confirms PaymentConfirmer
}

func NewHandler(co CheckoutService, intents IntentCreator, confirms PaymentConfirmer) *Handler {
	return &Handler{
		checkout: co,
		intents:  intents,
		confirms: confirms,
	}
}

// Checkout accepts a cart submission and creates a pending order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	lines := make([]checkout.LineInput, len(req.Items))
	for i, it := range req.Items {
		lines[i] = checkout.LineInput{
			Kind:     domain.ItemKind(it.Kind),
			ItemID:   it.ItemID,
			Quantity: it.Quantity,
		}
	}

	result, err := h.checkout.Checkout(r.Context(), checkout.Request{
		Lines:           lines,
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		DeliveryAddress: req.DeliveryAddress,
		City:            req.City,
		PostalCode:      req.PostalCode,
		Instructions:    req.Instructions,
		DeliveryMethod:  req.DeliveryMethod,
		PaymentMethod:   req.PaymentMethod,
		IdempotencyKey:  middlewares.IdempotencyKey(r.Context()),
	})
	if err != nil {
		writeAppError(r, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// CreateIntent creates a payment intent for a persisted order. The amount is
// taken from the stored order; the request carries only the order id and an
// optional currency override.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	result, err := h.intents.CreateForOrder(r.Context(), req.OrderID, req.Currency)
	if err != nil {
		writeAppError(r, w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ConfirmPayment verifies the intent status with the processor and finalizes
// the order. Safe to call repeatedly.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	result, err := h.confirms.Confirm(r.Context(), req.PaymentIntentID, req.OrderID)
	if err != nil {
		writeAppError(r, w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetOrderByID returns a single order for a status view.
func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "order_id_required", "")
		return
	}

	order, err := h.checkout.GetOrder(r.Context(), orderID)
	if err != nil {
		writeAppError(r, w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

// writeAppError maps the error taxonomy onto HTTP statuses. Gateway failures
// surface as 502 with a sanitized message; everything unclassified is a 500
// with the detail kept server-side.
func writeAppError(r *http.Request, w http.ResponseWriter, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case apperr.KindNotFound:
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case apperr.KindPaymentIncomplete:
		writeError(w, http.StatusBadRequest, "payment_not_completed", err.Error())
	case apperr.KindGateway:
		writeError(w, http.StatusBadGateway, "payment_gateway_error", err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
