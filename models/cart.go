package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"sync"
)

// MaxQuantity caps a single line so subtotals stay well inside int64.
const MaxQuantity = 9999

// CartItem is one cart line. ProductRef is its identity key.
type CartItem struct {
	ProductRef     string `json:"product_ref"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

// LineTotalCents is unit price times quantity.
func (i CartItem) LineTotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// CartTotals is always derived from the current lines.
type CartTotals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	ItemCount     int   `json:"item_count"`
}

// Cart is an ordered, merge-on-add collection of lines. Safe for concurrent use.
type Cart struct {
	mu    sync.RWMutex
	items []CartItem
}

func NewCart() *Cart {
	return &Cart{}
}

// ClampQuantity forces a quantity into [1, MaxQuantity].
func ClampQuantity(qty int) int {
	if qty < 1 {
		return 1
	}
	if qty > MaxQuantity {
		return MaxQuantity
	}
	return qty
}

// CoerceQuantity turns loosely typed input (JSON numbers, numeric strings)
// into a valid quantity. Anything non-numeric becomes 1; fractions round
// half away from zero.
func CoerceQuantity(v any) int {
	var f float64
	switch t := v.(type) {
	case int:
		return ClampQuantity(t)
	case int64:
		if t > MaxQuantity {
			return MaxQuantity
		}
		return ClampQuantity(int(t))
	case float64:
		f = t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 1
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 1
		}
		f = parsed
	default:
		return 1
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 1
	}
	f = math.Round(f)
	if f > MaxQuantity {
		return MaxQuantity
	}
	return ClampQuantity(int(f))
}

// AddItem merges qty into the existing line for p, or appends a new line.
// The unit price recorded on first add is kept.
func (c *Cart) AddItem(p Product, qty int) {
	qty = ClampQuantity(qty)

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductRef == p.Ref {
			c.items[i].Quantity = ClampQuantity(c.items[i].Quantity + qty)
			return
		}
	}
	c.items = append(c.items, CartItem{
		ProductRef:     p.Ref,
		Name:           p.Name,
		UnitPriceCents: p.PriceCents,
		Quantity:       qty,
	})
}

// RemoveItem deletes the line for ref. Unknown refs are ignored.
func (c *Cart) RemoveItem(ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductRef == ref {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// SetQuantity replaces the quantity of an existing line.
func (c *Cart) SetQuantity(ref string, qty int) {
	qty = ClampQuantity(qty)

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductRef == ref {
			c.items[i].Quantity = qty
			return
		}
	}
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// RemoveSnapshot takes the snapshotted lines out of the cart at their
// snapshotted quantities. Lines added or raised since the snapshot keep the
// difference; a line lowered below its snapshot is removed.
func (c *Cart) RemoveSnapshot(snapshot []CartItem) {
	taken := make(map[string]int, len(snapshot))
	for _, item := range snapshot {
		taken[item.ProductRef] += item.Quantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.items[:0]
	for _, item := range c.items {
		if qty, ok := taken[item.ProductRef]; ok {
			item.Quantity -= qty
			if item.Quantity < 1 {
				continue
			}
		}
		kept = append(kept, item)
	}
	if len(kept) == 0 {
		c.items = nil
		return
	}
	c.items = kept
}

// Totals recomputes the subtotal from the lines on every call.
func (c *Cart) Totals() CartTotals {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var t CartTotals
	for _, item := range c.items {
		t.SubtotalCents += item.LineTotalCents()
		t.ItemCount += item.Quantity
	}
	return t
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) IsEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items) == 0
}

// Restore replaces the contents with a persisted snapshot. Lines without a
// ref are dropped, duplicates are merged and quantities clamped.
func (c *Cart) Restore(items []CartItem) {
	restored := make([]CartItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if item.ProductRef == "" || item.UnitPriceCents < 0 {
			continue
		}
		if i, ok := index[item.ProductRef]; ok {
			restored[i].Quantity = ClampQuantity(restored[i].Quantity + ClampQuantity(item.Quantity))
			continue
		}
		item.Quantity = ClampQuantity(item.Quantity)
		index[item.ProductRef] = len(restored)
		restored = append(restored, item)
	}

	c.mu.Lock()
	c.items = restored
	c.mu.Unlock()
}
