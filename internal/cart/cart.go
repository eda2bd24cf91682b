// Package cart holds the order under construction and the merge engine that
// mutates it.
//
// The cart is a small insertion-ordered collection with one invariant: a
// product identity never appears on more than one line. The engine enforces
// it by merging additions into the existing line, converting the incoming
// quantity into that line's unit. Pricing and stock validation are external
// services; the engine never computes batch-weighted prices itself and never
// mutates the cart when validation fails.
package cart

import (
	"fmt"
	"math"
	"strconv"

	"github.com/kiranaops/bolbill/internal/catalog"
	"github.com/kiranaops/bolbill/internal/units"
)

// Line is one cart entry. Monetary fields are floored to two decimals.
type Line struct {
	ProductID   string     `json:"product_id"`
	ProductName string     `json:"product_name"`
	Quantity    float64    `json:"quantity"`
	Unit        units.Unit `json:"unit"`

	// UnitPrice is the product's effective per-unit price at the time the
	// line was last rebuilt. Informational; LineTotal comes from the
	// pricing service, not from UnitPrice multiplication.
	UnitPrice float64 `json:"unit_price"`

	// GSTAmount is the tax portion contained in LineTotal (inclusive
	// pricing).
	GSTAmount float64 `json:"gst_amount"`

	// LineTotal is the selling total for the whole line.
	LineTotal float64 `json:"line_total"`

	// CostTotal is the cost-side total, used for margin reporting.
	CostTotal float64 `json:"cost_total"`

	// SourceBatches lists the stock lots the pricing service allocated.
	SourceBatches []string `json:"source_batches,omitempty"`
}

// Cart is an insertion-ordered set of lines keyed by product identity.
// Not safe for concurrent use; the session serializes access.
type Cart struct {
	order []string
	lines map[string]*Line
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{lines: make(map[string]*Line)}
}

// LineKey derives the cart identity of a product: the catalog ID, or
// name+price for ad-hoc direct products that have none.
func LineKey(p catalog.Product) string {
	if p.ID != "" {
		return p.ID
	}
	return "direct|" + p.Name + "|" + strconv.FormatFloat(p.EffectivePrice(), 'f', 2, 64)
}

// Line returns the line for the given product identity, or false.
func (c *Cart) Line(key string) (Line, bool) {
	l, ok := c.lines[key]
	if !ok {
		return Line{}, false
	}
	return *l, true
}

// Lines returns all lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, *c.lines[key])
	}
	return out
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	return len(c.order)
}

// Total returns the sum of all line totals.
func (c *Cart) Total() float64 {
	var total float64
	for _, key := range c.order {
		total += c.lines[key].LineTotal
	}
	return total
}

// put inserts or overwrites a line, preserving insertion order.
func (c *Cart) put(key string, l Line) {
	if _, exists := c.lines[key]; !exists {
		c.order = append(c.order, key)
	}
	c.lines[key] = &l
}

// remove deletes a line if present.
func (c *Cart) remove(key string) {
	if _, exists := c.lines[key]; !exists {
		return
	}
	delete(c.lines, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Snapshot is the serializable form of a cart, written to the draft store
// after every successful mutation.
type Snapshot struct {
	Lines []Line `json:"lines"`
}

// Snapshot returns a copy of the cart's state in insertion order.
func (c *Cart) Snapshot() Snapshot {
	return Snapshot{Lines: c.Lines()}
}

// RestoreSnapshot replaces the cart's contents with the snapshot's lines.
func (c *Cart) RestoreSnapshot(s Snapshot) {
	c.order = c.order[:0]
	c.lines = make(map[string]*Line, len(s.Lines))
	for _, l := range s.Lines {
		key := l.ProductID
		if key == "" {
			key = "direct|" + l.ProductName + "|" + strconv.FormatFloat(l.UnitPrice, 'f', 2, 64)
		}
		c.put(key, l)
	}
}

// floor2 truncates a monetary value to two decimals. Always floors, never
// rounds, so cart totals match invoice totals exactly.
func floor2(v float64) float64 {
	return math.Floor(v*100) / 100
}

// gstPortion extracts the inclusive GST amount contained in total at the
// given percentage rate.
func gstPortion(total, percent float64) float64 {
	if percent <= 0 {
		return 0
	}
	return floor2(total * percent / (100 + percent))
}

// displayQuantity formats a quantity with its unit for user-facing stock
// messages.
func displayQuantity(qty float64, unit units.Unit) string {
	return fmt.Sprintf("%s %s", strconv.FormatFloat(qty, 'f', -1, 64), unit)
}
