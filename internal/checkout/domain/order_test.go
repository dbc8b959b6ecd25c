package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveOrderType(t *testing.T) {
	products := []OrderLine{{Kind: KindProduct}, {Kind: KindProduct}}
	services := []OrderLine{{Kind: KindService}}
	mixed := []OrderLine{{Kind: KindProduct}, {Kind: KindService}}

	assert.Equal(t, OrderTypeProduct, DeriveOrderType(products))
	assert.Equal(t, OrderTypeService, DeriveOrderType(services))
	assert.Equal(t, OrderTypeMixed, DeriveOrderType(mixed))
}

func TestItemKindValid(t *testing.T) {
	assert.True(t, KindProduct.Valid())
	assert.True(t, KindService.Valid())
	assert.False(t, ItemKind("subscription").Valid())
}
