// Package catalog is the port to the catalog service, the source of truth for
// current item price and display name. Prices cached client-side are advisory
// only; checkout always resolves through this lookup.
package catalog

import (
	"context"
	"errors"

	"github.com/aldomata/storefront-checkout/internal/checkout/domain"
)

// ErrItemNotFound means the (kind, id) pair does not resolve — typically a
// stale local cart referencing a removed item.
var ErrItemNotFound = errors.New("catalog: item not found")

// Item is the authoritative snapshot for one catalog entry.
type Item struct {
	Kind  domain.ItemKind
	ID    string
	Name  string
	Price float64
}

// Lookup resolves an item reference to its current authoritative price and
// display name.
type Lookup interface {
	Resolve(ctx context.Context, kind domain.ItemKind, itemID string) (Item, error)
}
