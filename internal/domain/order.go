package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// DefaultShippingCountry is prefilled on the checkout form.
const DefaultShippingCountry = "Colombia"

// ShippingDetails is what the shopper enters at checkout.
type ShippingDetails struct {
	ShippingAddress    string `json:"shipping_address" validate:"required,max=500"`
	ShippingCity       string `json:"shipping_city" validate:"required,max=100"`
	ShippingState      string `json:"shipping_state" validate:"required,max=100"`
	ShippingPostalCode string `json:"shipping_postal_code" validate:"required,max=20"`
	ShippingCountry    string `json:"shipping_country" validate:"max=100"`
	CustomerEmail      string `json:"customer_email" validate:"required,email"`
	CustomerPhone      string `json:"customer_phone" validate:"required,max=20"`
	Notes              string `json:"notes" validate:"max=1000"`
}

// Normalize trims every field and fills in the default country.
func (s *ShippingDetails) Normalize() {
	for _, f := range []*string{
		&s.ShippingAddress, &s.ShippingCity, &s.ShippingState, &s.ShippingPostalCode,
		&s.ShippingCountry, &s.CustomerEmail, &s.CustomerPhone, &s.Notes,
	} {
		*f = strings.TrimSpace(*f)
	}
	if s.ShippingCountry == "" {
		s.ShippingCountry = DefaultShippingCountry
	}
}

// OrderPayload is the checkout submission: shipping details plus the
// flattened cart lines.
type OrderPayload struct {
	ShippingDetails
	Items []LineItem `json:"items"`
}

// NewOrderPayload copies items so later cart changes do not leak into the
// submission.
func NewOrderPayload(details ShippingDetails, items []LineItem) OrderPayload {
	out := make([]LineItem, len(items))
	copy(out, items)
	return OrderPayload{ShippingDetails: details, Items: out}
}

// OrderItem is a line of a placed order.
type OrderItem struct {
	ID           ID              `json:"id"`
	ProductID    ID              `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	Total        decimal.Decimal `json:"total"`
}

// Order is a placed order. List endpoints omit the shipping fields and items
// and send ItemsCount instead.
type Order struct {
	ID                 ID              `json:"id"`
	OrderNumber        string          `json:"order_number"`
	UserID             ID              `json:"user_id"`
	Status             OrderStatus     `json:"status"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	Tax                decimal.Decimal `json:"tax"`
	ShippingCost       decimal.Decimal `json:"shipping_cost"`
	Discount           decimal.Decimal `json:"discount"`
	Total              decimal.Decimal `json:"total"`
	ShippingAddress    string          `json:"shipping_address,omitempty"`
	ShippingCity       string          `json:"shipping_city,omitempty"`
	ShippingState      string          `json:"shipping_state,omitempty"`
	ShippingPostalCode string          `json:"shipping_postal_code,omitempty"`
	ShippingCountry    string          `json:"shipping_country,omitempty"`
	CustomerEmail      string          `json:"customer_email,omitempty"`
	CustomerPhone      string          `json:"customer_phone,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	Items              []OrderItem     `json:"items,omitempty"`
	ItemsCount         int             `json:"items_count,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Cancellable reports whether the shopper may still cancel the order.
func (o Order) Cancellable() bool {
	return o.Status != OrderStatusDelivered && o.Status != OrderStatusCancelled
}

// OrderStatusInfo is the lightweight status endpoint response.
type OrderStatusInfo struct {
	OrderNumber string          `json:"order_number"`
	Status      OrderStatus     `json:"status"`
	Total       decimal.Decimal `json:"total"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CheckoutResult is returned by the checkout endpoint.
type CheckoutResult struct {
	Message string `json:"message"`
	Order   Order  `json:"order"`
}

// CartValidation is the server-side check of cart contents.
type CartValidation struct {
	Valid      bool            `json:"valid"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	ItemsCount int             `json:"items_count"`
}
