package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aldomata/storefront-checkout/internal/checkout/domain"
)

var now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func TestAddItem_IncrementsExistingLine(t *testing.T) {
	c := &Cart{ID: "c1"}
	c.AddItem(domain.KindProduct, "sku-1", 10.0, now)
	c.AddItem(domain.KindProduct, "sku-1", 10.0, now)

	assert.Len(t, c.Lines, 1)
	assert.Equal(t, 2, c.Lines[0].Quantity)
	assert.Equal(t, 2, c.Count())
}

func TestAddItem_SameIDDifferentKindIsSeparateLine(t *testing.T) {
	c := &Cart{ID: "c1"}
	c.AddItem(domain.KindProduct, "42", 10.0, now)
	c.AddItem(domain.KindService, "42", 99.0, now)

	assert.Len(t, c.Lines, 2)
}

func TestSetQuantity_ZeroRemovesLine(t *testing.T) {
	c := &Cart{ID: "c1"}
	c.AddItem(domain.KindProduct, "sku-1", 10.0, now)
	c.SetQuantity(domain.KindProduct, "sku-1", 0, now)

	assert.Empty(t, c.Lines)
}

func TestSetQuantity_NegativeRemovesLine(t *testing.T) {
	c := &Cart{ID: "c1"}
	c.AddItem(domain.KindProduct, "sku-1", 10.0, now)
	c.SetQuantity(domain.KindProduct, "sku-1", -3, now)

	assert.Empty(t, c.Lines)
}

func TestDisplayTotal(t *testing.T) {
	c := &Cart{ID: "c1"}
	c.AddItem(domain.KindProduct, "a", 10.0, now)
	c.AddItem(domain.KindProduct, "a", 10.0, now)
	c.AddItem(domain.KindService, "b", 5.0, now)

	assert.InDelta(t, 25.0, c.DisplayTotal(), 1e-9)
}

func TestClear(t *testing.T) {
	c := &Cart{ID: "c1"}
	c.AddItem(domain.KindProduct, "a", 10.0, now)
	c.Clear(now)

	assert.Empty(t, c.Lines)
	assert.Equal(t, 0, c.Count())
}
