package httpx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/aldomata/storefront-checkout/internal/payment"
	"github.com/aldomata/storefront-checkout/internal/pkg/apperr"
)

// HeaderGatewaySignature carries the hex-encoded HMAC-SHA256 of the raw
// request body, keyed with the shared webhook secret.
const HeaderGatewaySignature = "X-Gateway-Signature"

const maxWebhookBody = 1 << 20

// WebhookHandler receives asynchronous payment notifications from the
// processor. The payload is treated as a hint only: the intent is re-fetched
// from the gateway before any order state changes, so a forged or stale body
// cannot finalize an order.
type WebhookHandler struct {
	secret   string
	gateway  payment.Gateway
	confirms PaymentConfirmer
}

func NewWebhookHandler(secret string, gateway payment.Gateway, confirms PaymentConfirmer) *WebhookHandler {
	return &WebhookHandler{
		secret:   secret,
		gateway:  gateway,
		confirms: confirms,
	}
}

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// HandlePayment processes a processor event. Returns 200 for anything the
// processor should not redeliver (unknown events, incomplete payments,
// unknown orders) and 5xx only when our side failed and a redelivery could
// succeed.
func (h *WebhookHandler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "could not read body")
		return
	}

	if !h.validSignature(body, r.Header.Get(HeaderGatewaySignature)) {
		slog.WarnContext(r.Context(), "webhook signature rejected")
		writeError(w, http.StatusUnauthorized, "invalid_signature", "")
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if event.Data.Object.ID == "" {
		writeError(w, http.StatusBadRequest, "invalid_event", "missing intent id")
		return
	}

	// Anything other than a success notification is acknowledged without
	// touching order state; the reconciler handles stragglers.
	if event.Type != "payment_intent.succeeded" {
		slog.InfoContext(r.Context(), "webhook event ignored", "event_type", event.Type)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	intent, err := h.gateway.GetIntent(r.Context(), event.Data.Object.ID)
	if err != nil {
		h.writeWebhookError(r, w, err)
		return
	}
	if intent.OrderID == "" {
		// An intent we did not create (no order metadata) is not ours to act on.
		slog.WarnContext(r.Context(), "webhook intent has no order metadata", "payment_intent_id", intent.ID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	result, err := h.confirms.Confirm(r.Context(), intent.ID, intent.OrderID)
	if err != nil {
		h.writeWebhookError(r, w, err)
		return
	}

	slog.InfoContext(r.Context(), "webhook confirmed order",
		"order_id", result.OrderID, "payment_intent_id", intent.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

// writeWebhookError acknowledges terminal outcomes with 200 so the processor
// stops redelivering, and returns 5xx for transient failures worth a retry.
func (h *WebhookHandler) writeWebhookError(r *http.Request, w http.ResponseWriter, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindPaymentIncomplete, apperr.KindNotFound, apperr.KindValidation:
		slog.WarnContext(r.Context(), "webhook event not applied", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	case apperr.KindGateway:
		writeError(w, http.StatusBadGateway, "payment_gateway_error", "gateway unavailable")
	default:
		slog.ErrorContext(r.Context(), "webhook processing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func (h *WebhookHandler) validSignature(body []byte, signature string) bool {
	if h.secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
