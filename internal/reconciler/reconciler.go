// Package reconciler closes the dual-write gap between the local order store
// and the payment processor: if money moved at the gateway but the confirm
// call never reached this system (client crash, network partition), the sweep
// finds the stuck pending order and drives the same idempotent confirmation
// path the client would have.
package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aldomata/storefront-checkout/internal/checkout"
	"github.com/aldomata/storefront-checkout/internal/checkout/domain"
	"github.com/aldomata/storefront-checkout/internal/payment"
	"github.com/aldomata/storefront-checkout/internal/pkg/apperr"
)

// Confirmer is the slice of ConfirmationService the sweep needs.
type Confirmer interface {
	Confirm(ctx context.Context, intentID, orderID string) (*payment.ConfirmResult, error)
}

type Reconciler struct {
	repo      checkout.Repository
	confirmer Confirmer

	interval  time.Duration
	minAge    time.Duration
	batchSize int

	// staleAfter: a pending order older than this is logged for operators.
	// There is no automatic transition to cancelled or failed.
	staleAfter time.Duration

	now func() time.Time
}

func New(repo checkout.Repository, confirmer Confirmer, interval, minAge time.Duration) *Reconciler {
	return &Reconciler{
		repo:       repo,
		confirmer:  confirmer,
		interval:   interval,
		minAge:     minAge,
		batchSize:  50,
		staleAfter: 24 * time.Hour,
		now:        time.Now,
	}
}

// Run sweeps until ctx is cancelled, once immediately and then on every tick.
func (r *Reconciler) Run(ctx context.Context) {
	r.Sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep re-checks one batch of pending orders against the gateway. The min-age
// cutoff keeps the sweep from racing a checkout whose payment is still in
// flight.
func (r *Reconciler) Sweep(ctx context.Context) {
	cutoff := r.now().Add(-r.minAge)
	orders, err := r.repo.ListPendingBefore(ctx, cutoff, r.batchSize)
	if err != nil {
		slog.ErrorContext(ctx, "reconciler: list pending orders failed", "error", err)
		return
	}

	for _, order := range orders {
		r.reconcile(ctx, order)
	}
}

func (r *Reconciler) reconcile(ctx context.Context, order *domain.Order) {
	if order.PaymentIntentID == "" {
		// No intent was ever created; nothing to check at the gateway.
		r.flagIfStale(ctx, order)
		return
	}

	_, err := r.confirmer.Confirm(ctx, order.PaymentIntentID, order.ID)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "reconciler: confirmed order from gateway state",
			"order_id", order.ID, "order_number", order.OrderNumber, "intent_id", order.PaymentIntentID)

	case apperr.KindOf(err) == apperr.KindPaymentIncomplete,
		errors.Is(err, payment.ErrIntentNotFound),
		apperr.KindOf(err) == apperr.KindNotFound:
		// Payment genuinely never completed; the order stays pending.
		r.flagIfStale(ctx, order)

	default:
		slog.ErrorContext(ctx, "reconciler: confirm attempt failed",
			"order_id", order.ID, "intent_id", order.PaymentIntentID, "error", err)
	}
}

func (r *Reconciler) flagIfStale(ctx context.Context, order *domain.Order) {
	age := r.now().Sub(order.CreatedAt)
	if age > r.staleAfter {
		slog.WarnContext(ctx, "reconciler: stale pending order",
			"order_id", order.ID, "order_number", order.OrderNumber, "age", age.String())
	}
}
