// Package cart holds the shopping-cart state that precedes checkout.
//
// A cart is purely informational: the prices cached on its lines are display
// prices only and are recomputed authoritatively from the catalog at checkout
// time. Lines are keyed by (kind, item id); insertion order is preserved for
// display but carries no semantic weight.
package cart

import (
	"time"

	"github.com/aldomata/storefront-checkout/internal/checkout/domain"
)

// Line is one (kind, item) entry with its quantity and cached display price.
type Line struct {
	Kind         domain.ItemKind `json:"kind"`
	ItemID       string          `json:"item_id"`
	Quantity     int             `json:"quantity"`
	DisplayPrice float64         `json:"display_price"`
	AddedAt      time.Time       `json:"added_at"`
}

// Cart is a value; the Store owns durability. Two replicas of the same cart
// (e.g. two browser tabs) are independent — mutations are not merged.
type Cart struct {
	ID        string    `json:"id"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddItem increments the quantity if the (kind, id) pair exists, otherwise
// appends a new line with quantity 1.
func (c *Cart) AddItem(kind domain.ItemKind, itemID string, displayPrice float64, now time.Time) {
	for i := range c.Lines {
		if c.Lines[i].Kind == kind && c.Lines[i].ItemID == itemID {
			c.Lines[i].Quantity++
			c.UpdatedAt = now
			return
		}
	}
	c.Lines = append(c.Lines, Line{
		Kind:         kind,
		ItemID:       itemID,
		Quantity:     1,
		DisplayPrice: displayPrice,
		AddedAt:      now,
	})
	c.UpdatedAt = now
}

// SetQuantity sets the quantity for a line; qty <= 0 removes the line.
func (c *Cart) SetQuantity(kind domain.ItemKind, itemID string, qty int, now time.Time) {
	if qty <= 0 {
		c.RemoveItem(kind, itemID, now)
		return
	}
	for i := range c.Lines {
		if c.Lines[i].Kind == kind && c.Lines[i].ItemID == itemID {
			c.Lines[i].Quantity = qty
			c.UpdatedAt = now
			return
		}
	}
}

// RemoveItem deletes the line for (kind, id) if present.
func (c *Cart) RemoveItem(kind domain.ItemKind, itemID string, now time.Time) {
	for i := range c.Lines {
		if c.Lines[i].Kind == kind && c.Lines[i].ItemID == itemID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.UpdatedAt = now
			return
		}
	}
}

// Clear drops every line.
func (c *Cart) Clear(now time.Time) {
	c.Lines = nil
	c.UpdatedAt = now
}

// Count is the total quantity across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// DisplayTotal sums cached display prices. Advisory only — never used for
// charging.
func (c *Cart) DisplayTotal() float64 {
	total := 0.0
	for _, l := range c.Lines {
		total += l.DisplayPrice * float64(l.Quantity)
	}
	return total
}
