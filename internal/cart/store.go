package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aldomata/storefront-checkout/internal/checkout/domain"
)

// ErrCartNotFound is returned by Storage when no cart exists for an id.
// The Store treats it as an empty cart.
var ErrCartNotFound = errors.New("cart: not found")

// Storage is the durable backend for carts. Every mutation is written through
// immediately so a reload rehydrates the same state.
type Storage interface {
	Load(ctx context.Context, cartID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, cartID string) error
}

// Store is the cart service: load-mutate-save over Storage.
//
// Carts are mutated by a single logical thread of UI events per cart id;
// there is no cross-replica merging. Concurrent reads of the same cart are
// collapsed with singleflight.
type Store struct {
	storage Storage
	sfg     singleflight.Group

	// onOpen, when set, is invoked after an item is added so the UI layer
	// can open the cart view.
	onOpen func(cartID string)

	now func() time.Time
}

type StoreOption func(*Store)

// WithOpenSignal registers the UI hook fired after AddItem.
func WithOpenSignal(fn func(cartID string)) StoreOption {
	return func(s *Store) { s.onOpen = fn }
}

func NewStore(storage Storage, opts ...StoreOption) *Store {
	s := &Store{
		storage: storage,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get rehydrates a cart from storage; a missing cart is an empty cart.
func (s *Store) Get(ctx context.Context, cartID string) (*Cart, error) {
	v, err, _ := s.sfg.Do(cartID, func() (interface{}, error) {
		return s.load(ctx, cartID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Cart), nil
}

// AddItem appends or increments a line and signals the cart-view hook.
func (s *Store) AddItem(ctx context.Context, cartID string, kind domain.ItemKind, itemID string, displayPrice float64) (*Cart, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("cart: unknown item kind %q", kind)
	}

	c, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	c.AddItem(kind, itemID, displayPrice, s.now())
	if err := s.storage.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: persist add item: %w", err)
	}

	if s.onOpen != nil {
		s.onOpen(cartID)
	}
	return c, nil
}

// SetQuantity updates a line's quantity; qty <= 0 removes the line.
func (s *Store) SetQuantity(ctx context.Context, cartID string, kind domain.ItemKind, itemID string, qty int) (*Cart, error) {
	c, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	c.SetQuantity(kind, itemID, qty, s.now())
	if err := s.storage.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: persist set quantity: %w", err)
	}
	return c, nil
}

// RemoveItem drops a line.
func (s *Store) RemoveItem(ctx context.Context, cartID string, kind domain.ItemKind, itemID string) (*Cart, error) {
	c, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	c.RemoveItem(kind, itemID, s.now())
	if err := s.storage.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: persist remove item: %w", err)
	}
	return c, nil
}

// Clear discards the cart entirely, e.g. on explicit clear or after a
// successful checkout.
func (s *Store) Clear(ctx context.Context, cartID string) error {
	if err := s.storage.Delete(ctx, cartID); err != nil && !errors.Is(err, ErrCartNotFound) {
		return fmt.Errorf("cart: clear: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, cartID string) (*Cart, error) {
	c, err := s.storage.Load(ctx, cartID)
	if errors.Is(err, ErrCartNotFound) {
		return &Cart{ID: cartID, UpdatedAt: s.now()}, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "cart load failed", "cart_id", cartID, "error", err)
		return nil, fmt.Errorf("cart: load %s: %w", cartID, err)
	}
	return c, nil
}
