package payment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aldomata/storefront-checkout/internal/checkout"
	"github.com/aldomata/storefront-checkout/internal/checkout/domain"
	"github.com/aldomata/storefront-checkout/internal/outbox"
	"github.com/aldomata/storefront-checkout/internal/pkg/apperr"
)

// ConfirmResult is the finalized view of an order after confirmation.
type ConfirmResult struct {
	OrderID       string               `json:"order_id"`
	OrderNumber   string               `json:"order_number"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	OrderStatus   domain.OrderStatus   `json:"order_status"`
}

// ConfirmationService verifies gateway-side payment status and finalizes the
// order. The same function backs the client-initiated confirm call, the
// processor webhook and the reconciliation sweep, so all three paths share
// one idempotent state transition.
type ConfirmationService struct {
	gateway Gateway
	repo    checkout.Repository
}

func NewConfirmationService(gateway Gateway, repo checkout.Repository) *ConfirmationService {
	return &ConfirmationService{gateway: gateway, repo: repo}
}

// Confirm fetches the intent's authoritative status from the gateway — a
// client's claim of success is never trusted — and conditionally finalizes
// the order. A non-succeeded status leaves the order untouched and retryable.
func (s *ConfirmationService) Confirm(ctx context.Context, intentID, orderID string) (*ConfirmResult, error) {
	if intentID == "" || orderID == "" {
		return nil, apperr.New(apperr.KindValidation, "missing payment intent id or order id")
	}

	order, err := s.repo.GetByID(ctx, orderID)
	if errors.Is(err, checkout.ErrOrderNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "order not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "load order", err)
	}

	intent, err := s.gateway.GetIntent(ctx, intentID)
	if errors.Is(err, ErrIntentNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "payment intent not found")
	}
	if err != nil {
		return nil, err
	}

	// An intent tagged with a different order must not finalize this one.
	if intent.OrderRef != "" && intent.OrderRef != order.OrderNumber {
		return nil, apperr.New(apperr.KindValidation, "payment intent does not belong to this order")
	}

	if intent.Status != StatusSucceeded {
		slog.InfoContext(ctx, "payment not completed",
			"order_id", orderID, "intent_id", intentID, "intent_status", intent.Status)
		return nil, apperr.New(apperr.KindPaymentIncomplete, "payment not completed")
	}

	event, err := outbox.NewEvent(order.ID, outbox.EventOrderConfirmed, map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"email":        order.Customer.Email,
		"total_amount": order.TotalAmount,
		"intent_id":    intent.ID,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "build confirmation event", err)
	}

	result, err := s.repo.FinalizePayment(ctx, order.ID, event)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "finalize payment", err)
	}

	if result == checkout.FinalizeAlreadyDone {
		slog.InfoContext(ctx, "confirm replay for completed order", "order_id", order.ID)
	} else {
		slog.InfoContext(ctx, "order confirmed", "order_id", order.ID, "order_number", order.OrderNumber)
	}

	return &ConfirmResult{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		PaymentStatus: domain.PaymentCompleted,
		OrderStatus:   domain.OrderConfirmed,
	}, nil
}
