// Package cart holds the shopping cart aggregate: the set of products a
// shopper intends to buy and the totals derived from it.
package cart

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Item is one product line in the cart. Quantity is always >= 1.
type Item struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal returns unit price x quantity.
func (i Item) Subtotal() decimal.Decimal {
	price, err := i.Product.UnitPrice()
	if err != nil {
		return decimal.Zero
	}
	return price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart keeps at most one Item per product id, in insertion order.
// Cart is not safe for concurrent use; the application store serializes access.
type Cart struct {
	items []Item
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Restore rebuilds a cart from persisted items. Lines for the same product id
// are merged, lines with quantity <= 0 and invalid products are dropped.
func Restore(items []Item) *Cart {
	c := New()
	for _, it := range items {
		if it.Quantity <= 0 || it.Product.Validate() != nil {
			continue
		}
		if idx := c.indexOf(it.Product.ID); idx >= 0 {
			c.items[idx].Quantity += it.Quantity
			continue
		}
		c.items = append(c.items, it)
	}
	return c
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.items {
		if c.items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// Add puts one unit of p in the cart, incrementing an existing line.
func (c *Cart) Add(p Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if idx := c.indexOf(p.ID); idx >= 0 {
		c.items[idx].Quantity++
		return nil
	}
	c.items = append(c.items, Item{Product: p, Quantity: 1})
	return nil
}

// Remove deletes the line for productID. Absent ids are ignored.
func (c *Cart) Remove(productID string) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
}

// SetQuantity sets the quantity exactly. quantity <= 0 removes the line;
// unknown ids are ignored.
func (c *Cart) SetQuantity(productID string, quantity int) {
	if quantity <= 0 {
		c.Remove(productID)
		return
	}
	if idx := c.indexOf(productID); idx >= 0 {
		c.items[idx].Quantity = quantity
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the lines.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of distinct products.
func (c *Cart) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// TotalItems returns the sum of all quantities.
func (c *Cart) TotalItems() int {
	total := 0
	for _, it := range c.items {
		total += it.Quantity
	}
	return total
}

// TotalPrice returns the sum of unit price x quantity, unrounded.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Fingerprint identifies the cart contents independent of line order.
// Two carts with the same products, prices and quantities share a fingerprint.
func (c *Cart) Fingerprint() string {
	lines := make([]string, 0, len(c.items))
	for _, it := range c.items {
		price, _ := it.Product.UnitPrice()
		lines = append(lines, fmt.Sprintf("%s|%s|%d", it.Product.ID, price.String(), it.Quantity))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
