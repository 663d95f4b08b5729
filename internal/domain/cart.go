package domain

import (
	"github.com/shopspring/decimal"
)

// LineItem is one product in the cart with its price snapshot.
type LineItem struct {
	ProductID    ID              `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
}

// Subtotal is price times quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Cart is the shopper's cart. Items are unique by product id and keep the
// order they were added in. Total and ItemCount are derived from the items
// after every mutation and cannot be set directly.
//
// Cart is not safe for concurrent use.
type Cart struct {
	items     []LineItem
	total     decimal.Decimal
	itemCount int
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{}
}

// RestoreCart rebuilds a cart from stored line items. Repeated product ids
// are merged into the first occurrence.
func RestoreCart(items []LineItem) *Cart {
	c := &Cart{}
	for _, item := range items {
		if i := c.indexOf(item.ProductID); i >= 0 {
			c.items[i].Quantity += item.Quantity
			continue
		}
		c.items = append(c.items, item)
	}
	c.recompute()
	return c
}

// Add puts quantity units of p in the cart. An existing line keeps its price
// snapshot and gains the quantity; otherwise a new line is appended at the
// product's effective price. A quantity below 1 counts as 1.
func (c *Cart) Add(p Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	if i := c.indexOf(p.ID); i >= 0 {
		c.items[i].Quantity += quantity
	} else {
		c.items = append(c.items, LineItem{
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductImage: p.Image,
			Price:        p.EffectivePrice(),
			Quantity:     quantity,
		})
	}
	c.recompute()
}

// Remove deletes the line for id. It reports whether a line was removed.
func (c *Cart) Remove(id ID) bool {
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.recompute()
	return true
}

// SetQuantity replaces the quantity of the line for id. The value is not
// checked; callers reject quantities below 1. It reports whether a line was
// found.
func (c *Cart) SetQuantity(id ID, quantity int) bool {
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.items[i].Quantity = quantity
	c.recompute()
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
	c.recompute()
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Item returns the line for id.
func (c *Cart) Item(id ID) (LineItem, bool) {
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	return LineItem{}, false
}

// Total is the sum of price times quantity over all lines.
func (c *Cart) Total() decimal.Decimal { return c.total }

// ItemCount is the number of distinct lines, not the summed quantity.
func (c *Cart) ItemCount() int { return c.itemCount }

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

// View returns a read-only snapshot for presentation.
func (c *Cart) View() CartView {
	return CartView{Items: c.Items(), Total: c.total, ItemCount: c.itemCount}
}

func (c *Cart) indexOf(id ID) int {
	for i := range c.items {
		if c.items[i].ProductID == id {
			return i
		}
	}
	return -1
}

// recompute is the single place derived fields are computed.
func (c *Cart) recompute() {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Subtotal())
	}
	c.total = total
	c.itemCount = len(c.items)
}

// CartView is the JSON shape of the cart exposed to the UI.
type CartView struct {
	Items     []LineItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}
