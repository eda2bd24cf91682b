// Package pricing implements the cart's pricing and stock contracts from
// catalog data: totals are allocated across a product's stock batches oldest
// first, and availability is checked against the recorded stock level.
//
// Shops with an external billing backend can swap this out; the cart engine
// only sees the [cart.Pricer] and [cart.StockChecker] interfaces.
package pricing

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kiranaops/bolbill/internal/cart"
	"github.com/kiranaops/bolbill/internal/catalog"
	"github.com/kiranaops/bolbill/internal/units"
)

// Service prices quantities from catalog batch data.
type Service struct{}

var (
	_ cart.Pricer       = (*Service)(nil)
	_ cart.StockChecker = (*Service)(nil)
)

// New returns a catalog-backed pricing service.
func New() *Service {
	return &Service{}
}

// Price computes the selling and cost totals for a quantity of p.
//
// The quantity is converted to the product's native unit, then drawn from
// the product's batches in listed (oldest-first) order; any remainder beyond
// batch stock is priced at the product-level price. In wholesale mode the
// per-sub-unit price is preferred when the product carries one.
func (s *Service) Price(ctx context.Context, p catalog.Product, quantity float64, unit units.Unit, mode catalog.SaleMode) (cart.Quote, error) {
	rec := units.Reconcile(quantity, unit, p.NativeUnit)
	if !rec.Compatible {
		return cart.Quote{}, fmt.Errorf("pricing %q: cannot convert %s to %s", p.Name, unit, p.NativeUnit)
	}

	fallbackSell := s.unitPrice(p, mode)
	remaining := rec.Quantity
	var quote cart.Quote

	for _, b := range p.Batches {
		if remaining <= 0 {
			break
		}
		take := remaining
		if b.Quantity < take {
			take = b.Quantity
		}
		if take <= 0 {
			continue
		}
		sell := b.SellingPrice
		if sell <= 0 {
			sell = fallbackSell
		}
		cost := b.CostPrice
		if cost <= 0 {
			cost = p.CostPrice
		}
		quote.TotalSellingPrice += take * sell
		quote.TotalCostPrice += take * cost
		quote.UsedBatches = append(quote.UsedBatches, b.ID)
		remaining -= take
	}

	if remaining > 0 {
		quote.TotalSellingPrice += remaining * fallbackSell
		quote.TotalCostPrice += remaining * p.CostPrice
	}
	return quote, nil
}

// CheckStock validates the requested quantity against the product's stock
// level, both expressed in the native unit.
func (s *Service) CheckStock(ctx context.Context, p catalog.Product, quantity float64, unit units.Unit) (cart.StockResult, error) {
	rec := units.Reconcile(quantity, unit, p.NativeUnit)
	if !rec.Compatible {
		return cart.StockResult{
			Available:        false,
			StockDisplay:     display(p.Stock, p.NativeUnit),
			RequestedDisplay: display(quantity, unit),
		}, nil
	}
	return cart.StockResult{
		Available:        rec.Quantity <= p.Stock,
		StockDisplay:     display(p.Stock, p.NativeUnit),
		RequestedDisplay: display(rec.Quantity, p.NativeUnit),
	}, nil
}

// unitPrice selects the per-native-unit selling price for the sale mode.
func (s *Service) unitPrice(p catalog.Product, mode catalog.SaleMode) float64 {
	if mode == catalog.SaleWholesale && p.SellingUnitPrice > 0 {
		return p.SellingUnitPrice
	}
	return p.EffectivePrice()
}

func display(qty float64, unit units.Unit) string {
	return strconv.FormatFloat(qty, 'f', -1, 64) + " " + string(unit)
}
