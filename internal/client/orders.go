package client

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/utafrali/storefront/internal/domain"
)

type cartItemsRequest struct {
	Items []domain.LineItem `json:"items"`
}

// orderList accepts a bare list of orders or an object wrapping one under
// "orders" or "results".
type orderList []domain.Order

func (l *orderList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, (*[]domain.Order)(l))
	}

	var wrapped struct {
		Orders  []domain.Order `json:"orders"`
		Results []domain.Order `json:"results"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Orders != nil {
		*l = wrapped.Orders
	} else {
		*l = wrapped.Results
	}
	return nil
}

// MyOrders lists the authenticated user's orders.
func (c *Client) MyOrders(ctx context.Context) ([]domain.Order, error) {
	var out orderList
	if err := c.get(ctx, "list orders", "/api/orders/my_orders/", nil, &out); err != nil {
		return nil, err
	}
	return nonNil([]domain.Order(out)), nil
}

// GetOrder returns an order with its items.
func (c *Client) GetOrder(ctx context.Context, id domain.ID) (domain.Order, error) {
	var o domain.Order
	err := c.get(ctx, "get order", "/api/orders/"+escape(id)+"/", nil, &o)
	return o, err
}

// CreateOrder places an order directly, outside the cart checkout.
func (c *Client) CreateOrder(ctx context.Context, payload domain.OrderPayload) (domain.Order, error) {
	var o domain.Order
	err := c.post(ctx, "create order", "/api/orders/", payload, &o)
	return o, err
}

// CancelOrder cancels an order that has not been delivered.
func (c *Client) CancelOrder(ctx context.Context, id domain.ID) (domain.Order, error) {
	var o domain.Order
	err := c.post(ctx, "cancel order", "/api/orders/"+escape(id)+"/cancel/", struct{}{}, &o)
	return o, err
}

// OrderStatus returns the lightweight status of an order.
func (c *Client) OrderStatus(ctx context.Context, id domain.ID) (domain.OrderStatusInfo, error) {
	var s domain.OrderStatusInfo
	err := c.get(ctx, "order status", "/api/orders/"+escape(id)+"/status/", nil, &s)
	return s, err
}

// ValidateCart asks the API to check the cart lines and price them.
func (c *Client) ValidateCart(ctx context.Context, items []domain.LineItem) (domain.CartValidation, error) {
	var v domain.CartValidation
	err := c.post(ctx, "validate cart", "/api/cart/validate/", cartItemsRequest{Items: nonNil(items)}, &v)
	return v, err
}

// Checkout submits the order payload. It is sent exactly once.
func (c *Client) Checkout(ctx context.Context, payload domain.OrderPayload) (domain.CheckoutResult, error) {
	var out domain.CheckoutResult
	err := c.post(ctx, "checkout", "/api/cart/checkout/", payload, &out)
	return out, err
}
