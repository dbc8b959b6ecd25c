package httpx

import "github.com/aldomata/storefront-checkout/internal/checkout/domain"

type CheckoutItemDTO struct {
	Kind     string `json:"kind"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type CheckoutRequest struct {
	Items []CheckoutItemDTO `json:"items"`

	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	DeliveryAddress string `json:"delivery_address"`
	City            string `json:"city,omitempty"`
	PostalCode      string `json:"postal_code,omitempty"`
	Instructions    string `json:"instructions,omitempty"`
	DeliveryMethod  string `json:"delivery_method,omitempty"`
	PaymentMethod   string `json:"payment_method,omitempty"`
}

type CreateIntentRequest struct {
	OrderID  string `json:"order_id"`
	Currency string `json:"currency,omitempty"`
}

type ConfirmRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
	OrderID         string `json:"order_id"`
}

type OrderLineResponse struct {
	Kind      string  `json:"kind"`
	ItemID    string  `json:"item_id"`
	ItemName  string  `json:"item_name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

type OrderResponse struct {
	ID            string              `json:"id"`
	OrderNumber   string              `json:"order_number"`
	OrderType     string              `json:"order_type"`
	Lines         []OrderLineResponse `json:"lines"`
	Subtotal      float64             `json:"subtotal"`
	DeliveryCost  float64             `json:"delivery_cost"`
	Tax           float64             `json:"tax"`
	TotalAmount   float64             `json:"total_amount"`
	PaymentStatus string              `json:"payment_status"`
	OrderStatus   string              `json:"order_status"`
	CreatedAt     string              `json:"created_at"`
}

type CartAddRequest struct {
	Kind         string  `json:"kind"`
	ItemID       string  `json:"item_id"`
	DisplayPrice float64 `json:"display_price"`
}

type CartQuantityRequest struct {
	Kind     string `json:"kind"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type CartResponse struct {
	ID           string             `json:"id"`
	Lines        []CartLineResponse `json:"lines"`
	Count        int                `json:"count"`
	DisplayTotal float64            `json:"display_total"`
}

type CartLineResponse struct {
	Kind         string  `json:"kind"`
	ItemID       string  `json:"item_id"`
	Quantity     int     `json:"quantity"`
	DisplayPrice float64 `json:"display_price"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapOrderToResponse(order *domain.Order) OrderResponse {
	lines := make([]OrderLineResponse, len(order.Lines))
	for i, l := range order.Lines {
		lines[i] = OrderLineResponse{
			Kind:      string(l.Kind),
			ItemID:    l.ItemID,
			ItemName:  l.ItemName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		}
	}
	return OrderResponse{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		OrderType:     string(order.OrderType),
		Lines:         lines,
		Subtotal:      order.Subtotal,
		DeliveryCost:  order.DeliveryCost,
		Tax:           order.Tax,
		TotalAmount:   order.TotalAmount,
		PaymentStatus: string(order.PaymentStatus),
		OrderStatus:   string(order.OrderStatus),
		CreatedAt:     order.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
