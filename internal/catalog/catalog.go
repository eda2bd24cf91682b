// Package catalog defines the read-only product snapshot the order-intake
// engine resolves spoken names against, plus the stores that supply it.
//
// The engine never owns catalog persistence: it asks a [Lister] for a fresh
// snapshot before each processing batch and treats the returned products as
// immutable values.
package catalog

import (
	"context"
	"errors"

	"github.com/kiranaops/bolbill/internal/units"
)

// ErrNotFound is returned when a product ID does not exist in a store.
var ErrNotFound = errors.New("catalog: product not found")

// ErrDuplicateID is returned when adding a product whose ID already exists.
var ErrDuplicateID = errors.New("catalog: duplicate product id")

// SaleMode selects retail or wholesale pricing and validation behaviour.
type SaleMode string

const (
	SaleRetail    SaleMode = "retail"
	SaleWholesale SaleMode = "wholesale"
)

// IsValid reports whether m is a recognised sale mode.
func (m SaleMode) IsValid() bool {
	return m == SaleRetail || m == SaleWholesale
}

// Batch is one purchasable stock lot of a product. Pricing across batches is
// performed by the external pricing service; the engine only carries batch
// identifiers through to the cart line.
type Batch struct {
	ID           string  `yaml:"id"`
	Quantity     float64 `yaml:"quantity"`
	SellingPrice float64 `yaml:"selling_price"`
	CostPrice    float64 `yaml:"cost_price"`
}

// Product is a read-only snapshot of one catalog entry.
type Product struct {
	// ID is the catalog identity. Empty for ad-hoc "direct" products,
	// which are identified by code+price instead.
	ID string `yaml:"id"`

	// Name is the canonical display name resolved against spoken text.
	Name string `yaml:"name"`

	// NativeUnit is the unit the product is stocked and priced in.
	NativeUnit units.Unit `yaml:"native_unit"`

	// SellingPrice is the retail price per native unit.
	SellingPrice float64 `yaml:"selling_price"`

	// SellingUnitPrice is a per-sub-unit price variant kept by some stores.
	// Consulted after SellingPrice when deriving quantity from an amount.
	SellingUnitPrice float64 `yaml:"selling_unit_price"`

	// CostPrice is the purchase price per native unit.
	CostPrice float64 `yaml:"cost_price"`

	// UnitPrice is the legacy flat price field. Last in the price fallback
	// chain.
	UnitPrice float64 `yaml:"unit_price"`

	// GSTPercent is the GST rate applied to the line, inclusive pricing.
	GSTPercent float64 `yaml:"gst_percent"`

	// Stock is the available quantity in NativeUnit.
	Stock float64 `yaml:"stock"`

	// WholesaleMOQ is the minimum order quantity enforced in wholesale
	// mode. Zero means no minimum.
	WholesaleMOQ float64 `yaml:"wholesale_moq"`

	// Batches lists the stock lots backing this product, oldest first.
	Batches []Batch `yaml:"batches"`
}

// EffectivePrice returns the first positive value among the product's price
// fields, in the fixed fallback order selling → selling-unit → cost →
// legacy-unit. Returns 0 when no positive price exists.
func (p Product) EffectivePrice() float64 {
	for _, v := range []float64{p.SellingPrice, p.SellingUnitPrice, p.CostPrice, p.UnitPrice} {
		if v > 0 {
			return v
		}
	}
	return 0
}

// Lister supplies a fresh product snapshot. Implementations must return
// products in stable catalog order — resolver tie-breaks depend on it.
type Lister interface {
	ListProducts(ctx context.Context) ([]Product, error)
}
