package pricing_test

import (
	"context"
	"math"
	"testing"

	"github.com/kiranaops/bolbill/internal/catalog"
	"github.com/kiranaops/bolbill/internal/pricing"
	"github.com/kiranaops/bolbill/internal/units"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPrice_AllocatesAcrossBatchesOldestFirst(t *testing.T) {
	t.Parallel()

	p := catalog.Product{
		Name: "sugar", NativeUnit: units.Kilogram, SellingPrice: 50, CostPrice: 40,
		Batches: []catalog.Batch{
			{ID: "b1", Quantity: 2, SellingPrice: 45, CostPrice: 38},
			{ID: "b2", Quantity: 5, SellingPrice: 50, CostPrice: 40},
		},
	}

	q, err := pricing.New().Price(context.Background(), p, 3, units.Kilogram, catalog.SaleRetail)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	// 2 kg from b1 at 45, 1 kg from b2 at 50.
	if !almostEqual(q.TotalSellingPrice, 140) {
		t.Errorf("TotalSellingPrice = %v, want 140", q.TotalSellingPrice)
	}
	if !almostEqual(q.TotalCostPrice, 116) {
		t.Errorf("TotalCostPrice = %v, want 116", q.TotalCostPrice)
	}
	if len(q.UsedBatches) != 2 || q.UsedBatches[0] != "b1" || q.UsedBatches[1] != "b2" {
		t.Errorf("UsedBatches = %v, want [b1 b2]", q.UsedBatches)
	}
}

func TestPrice_RemainderUsesProductPrice(t *testing.T) {
	t.Parallel()

	p := catalog.Product{
		Name: "sugar", NativeUnit: units.Kilogram, SellingPrice: 50, CostPrice: 40,
		Batches: []catalog.Batch{
			{ID: "b1", Quantity: 1, SellingPrice: 45, CostPrice: 38},
		},
	}

	q, err := pricing.New().Price(context.Background(), p, 4, units.Kilogram, catalog.SaleRetail)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	// 1 kg at 45 + 3 kg at the product price 50.
	if !almostEqual(q.TotalSellingPrice, 195) {
		t.Errorf("TotalSellingPrice = %v, want 195", q.TotalSellingPrice)
	}
	if len(q.UsedBatches) != 1 || q.UsedBatches[0] != "b1" {
		t.Errorf("UsedBatches = %v, want [b1]", q.UsedBatches)
	}
}

func TestPrice_ConvertsSubUnits(t *testing.T) {
	t.Parallel()

	p := catalog.Product{Name: "sugar", NativeUnit: units.Kilogram, SellingPrice: 50}

	q, err := pricing.New().Price(context.Background(), p, 500, units.Gram, catalog.SaleRetail)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if !almostEqual(q.TotalSellingPrice, 25) {
		t.Errorf("TotalSellingPrice = %v, want 25", q.TotalSellingPrice)
	}
}

func TestPrice_IncompatibleUnit(t *testing.T) {
	t.Parallel()

	p := catalog.Product{Name: "sugar", NativeUnit: units.Kilogram, SellingPrice: 50}

	if _, err := pricing.New().Price(context.Background(), p, 2, units.Litre, catalog.SaleRetail); err == nil {
		t.Fatal("expected error for measured-to-measured category mismatch")
	}
}

func TestPrice_WholesalePrefersUnitPrice(t *testing.T) {
	t.Parallel()

	p := catalog.Product{
		Name: "rice", NativeUnit: units.Kilogram,
		SellingPrice: 110, SellingUnitPrice: 98, CostPrice: 95,
	}

	q, err := pricing.New().Price(context.Background(), p, 10, units.Kilogram, catalog.SaleWholesale)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if !almostEqual(q.TotalSellingPrice, 980) {
		t.Errorf("wholesale TotalSellingPrice = %v, want 980", q.TotalSellingPrice)
	}

	q, err = pricing.New().Price(context.Background(), p, 10, units.Kilogram, catalog.SaleRetail)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if !almostEqual(q.TotalSellingPrice, 1100) {
		t.Errorf("retail TotalSellingPrice = %v, want 1100", q.TotalSellingPrice)
	}
}

func TestCheckStock(t *testing.T) {
	t.Parallel()

	p := catalog.Product{Name: "sugar", NativeUnit: units.Kilogram, SellingPrice: 50, Stock: 2.5}
	svc := pricing.New()
	ctx := context.Background()

	res, err := svc.CheckStock(ctx, p, 2500, units.Gram)
	if err != nil {
		t.Fatalf("CheckStock: %v", err)
	}
	if !res.Available {
		t.Error("2500 g of 2.5 kg stock should be available")
	}
	if res.StockDisplay != "2.5 kg" {
		t.Errorf("StockDisplay = %q, want %q", res.StockDisplay, "2.5 kg")
	}

	res, err = svc.CheckStock(ctx, p, 3, units.Kilogram)
	if err != nil {
		t.Fatalf("CheckStock: %v", err)
	}
	if res.Available {
		t.Error("3 kg of 2.5 kg stock should not be available")
	}
	if res.RequestedDisplay != "3 kg" {
		t.Errorf("RequestedDisplay = %q, want %q", res.RequestedDisplay, "3 kg")
	}
}
