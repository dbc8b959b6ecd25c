package payment

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aldomata/storefront-checkout/internal/checkout"
	"github.com/aldomata/storefront-checkout/internal/pkg/apperr"
)

// IntentResult is handed to the client so it can complete payment directly
// with the processor.
type IntentResult struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
}

// IntentService creates payment intents for persisted orders. The charge
// amount is always read from the stored order, never from the client.
type IntentService struct {
	gateway         Gateway
	repo            checkout.Repository
	defaultCurrency string
}

func NewIntentService(gateway Gateway, repo checkout.Repository, defaultCurrency string) *IntentService {
	return &IntentService{
		gateway:         gateway,
		repo:            repo,
		defaultCurrency: defaultCurrency,
	}
}

// CreateForOrder creates an intent for the order's total, tags it with the
// order number and records the intent id on the order so the reconciler can
// find it later.
//
// Creating the intent and attaching its id are two non-atomic steps; if the
// process dies in between, the client simply retries against the same order
// and a fresh intent supersedes the orphaned one at the processor.
func (s *IntentService) CreateForOrder(ctx context.Context, orderID, currency string) (*IntentResult, error) {
	if orderID == "" {
		return nil, apperr.New(apperr.KindValidation, "missing order id")
	}

	order, err := s.repo.GetByID(ctx, orderID)
	if errors.Is(err, checkout.ErrOrderNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "order not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "load order", err)
	}

	if currency == "" {
		currency = s.defaultCurrency
	}

	params := CreateIntentParams{
		AmountMinor:   ToMinorUnits(order.TotalAmount),
		Currency:      strings.ToLower(currency),
		CustomerEmail: order.Customer.Email,
		OrderRef:      order.OrderNumber,
		OrderID:       order.ID,
	}
	if params.AmountMinor <= 0 {
		return nil, apperr.New(apperr.KindValidation, "missing amount")
	}
	if params.CustomerEmail == "" {
		return nil, apperr.New(apperr.KindValidation, "missing email")
	}
	if params.OrderRef == "" {
		return nil, apperr.New(apperr.KindValidation, "missing order reference")
	}

	intent, err := s.gateway.CreateIntent(ctx, params)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AttachIntent(ctx, orderID, intent.ID); err != nil {
		// The intent exists at the processor but the order does not know its
		// id. The client still gets the secret; the reconciler just cannot
		// re-check this order until a retry attaches an id.
		slog.ErrorContext(ctx, "failed to attach intent to order",
			"order_id", orderID, "intent_id", intent.ID, "error", err)
	}

	slog.InfoContext(ctx, "payment intent created",
		"order_id", orderID, "intent_id", intent.ID, "amount_minor", params.AmountMinor)

	return &IntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}, nil
}
