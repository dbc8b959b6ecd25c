// Package domain holds the order model for the checkout-to-payment lifecycle.
//
// An Order is created exactly once by the checkout service, mutated exactly
// once (to its terminal payment state) by the confirmation flow, and never
// touched again. Its lines are price snapshots taken at creation time —
// evidence of what the customer was charged for, independent of later catalog
// price changes.
package domain

import "time"

// ItemKind distinguishes the two sellable catalog families.
type ItemKind string

const (
	KindProduct ItemKind = "product"
	KindService ItemKind = "service"
)

// Valid reports whether k is one of the known kinds.
func (k ItemKind) Valid() bool {
	return k == KindProduct || k == KindService
}

// OrderType is derived from the kinds of an order's lines.
type OrderType string

const (
	OrderTypeProduct OrderType = "product"
	OrderTypeService OrderType = "service"
	OrderTypeMixed   OrderType = "mixed"
)

// PaymentStatus only ever moves pending → completed or pending → failed.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// OrderStatus confirmed implies PaymentCompleted; the reverse may lag during
// the window between the gateway reporting success and confirm landing.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderLine is an immutable snapshot of one cart line at order-creation time.
// UnitPrice always comes from the catalog lookup, never from the client.
type OrderLine struct {
	Kind      ItemKind
	ItemID    string
	ItemName  string
	Quantity  int
	UnitPrice float64
	LineTotal float64
}

// Customer is the contact/delivery block captured with the order.
type Customer struct {
	FullName        string
	Email           string
	Phone           string
	DeliveryAddress string
	City            string
	PostalCode      string
	Instructions    string
	DeliveryMethod  string
}

type Order struct {
	ID          string
	OrderNumber string
	Customer    Customer
	OrderType   OrderType
	Lines       []OrderLine

	Subtotal     float64
	DeliveryCost float64
	Tax          float64
	TotalAmount  float64

	PaymentMethod string
	// PaymentIntentID is set once an intent has been created at the gateway;
	// empty until then. The reconciler skips orders without one.
	PaymentIntentID string

	PaymentStatus PaymentStatus
	OrderStatus   OrderStatus
	CreatedAt     time.Time
}

// DeriveOrderType returns product/service when the lines are homogeneous,
// mixed otherwise.
func DeriveOrderType(lines []OrderLine) OrderType {
	var hasProduct, hasService bool
	for _, l := range lines {
		switch l.Kind {
		case KindProduct:
			hasProduct = true
		case KindService:
			hasService = true
		}
	}
	switch {
	case hasProduct && hasService:
		return OrderTypeMixed
	case hasService:
		return OrderTypeService
	default:
		return OrderTypeProduct
	}
}
