package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/aldomata/storefront-checkout/internal/checkout/domain"
	"github.com/aldomata/storefront-checkout/internal/outbox"
)

var (
	// ErrOrderNotFound: no order row for the given id.
	ErrOrderNotFound = errors.New("checkout: order not found")

	// ErrDuplicateOrderNumber: the UNIQUE constraint on order_number fired.
	// The caller regenerates the number and retries.
	ErrDuplicateOrderNumber = errors.New("checkout: duplicate order number")
)

// FinalizeResult says what the conditional payment-finalize update did.
type FinalizeResult int

const (
	// FinalizeApplied: the order moved pending → confirmed/completed.
	FinalizeApplied FinalizeResult = iota
	// FinalizeAlreadyDone: the order was already confirmed/completed; the
	// call was an idempotent no-op.
	FinalizeAlreadyDone
)

// Repository is the durable order store.
//
// Create and FinalizePayment each write the order change and its outbox event
// in a single transaction, so an order mutation and its announcement cannot
// diverge.
type Repository interface {
	// Create persists a new order with its lines and the order.created event.
	// Returns ErrDuplicateOrderNumber on an order-number collision.
	Create(ctx context.Context, order *domain.Order, event outbox.Event) error

	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// AttachIntent records the gateway intent id on a still-pending order.
	AttachIntent(ctx context.Context, orderID, intentID string) error

	// FinalizePayment conditionally moves the order to completed/confirmed:
	//
	//	UPDATE orders SET payment_status='completed', order_status='confirmed'
	//	WHERE id = ? AND payment_status = 'pending'
	//
	// A replay for an already-completed order reports FinalizeAlreadyDone and
	// enqueues nothing. Returns ErrOrderNotFound if no order row exists.
	FinalizePayment(ctx context.Context, orderID string, event outbox.Event) (FinalizeResult, error)

	// ListPendingBefore returns orders still pending/pending created before
	// cutoff, oldest first, for the reconciliation sweep.
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Order, error)
}
