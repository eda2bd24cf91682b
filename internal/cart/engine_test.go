package cart_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kiranaops/bolbill/internal/cart"
	"github.com/kiranaops/bolbill/internal/catalog"
	"github.com/kiranaops/bolbill/internal/command"
	"github.com/kiranaops/bolbill/internal/pricing"
	"github.com/kiranaops/bolbill/internal/units"
)

func sugar() catalog.Product {
	return catalog.Product{
		ID: "p1", Name: "sugar", NativeUnit: units.Kilogram,
		SellingPrice: 50, CostPrice: 42, GSTPercent: 5, Stock: 25,
	}
}

func biscuit() catalog.Product {
	return catalog.Product{
		ID: "p2", Name: "biscuit", NativeUnit: units.Piece,
		SellingPrice: 10, Stock: 4,
	}
}

func retailEngine() *cart.Engine {
	svc := pricing.New()
	return cart.NewEngine(svc, svc, catalog.SaleRetail)
}

func addCmd(p catalog.Product, qty float64, unit units.Unit) command.ResolvedCommand {
	return command.ResolvedCommand{Product: p, Matched: true, Quantity: qty, Unit: unit, UnitCompatible: true}
}

func TestAdd_NewLine(t *testing.T) {
	t.Parallel()

	e := retailEngine()
	c := cart.NewCart()

	res, err := e.Add(context.Background(), c, addCmd(sugar(), 2, units.Kilogram))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.Merged {
		t.Error("Merged=true for a fresh line")
	}
	if res.Line.LineTotal != 100 {
		t.Errorf("LineTotal = %v, want 100", res.Line.LineTotal)
	}
	// Inclusive GST: 100 * 5/105, floored.
	if res.Line.GSTAmount != 4.76 {
		t.Errorf("GSTAmount = %v, want 4.76", res.Line.GSTAmount)
	}
	if res.Line.CostTotal != 84 {
		t.Errorf("CostTotal = %v, want 84", res.Line.CostTotal)
	}
}

func TestAdd_MergesIntoExistingLineUnit(t *testing.T) {
	t.Parallel()

	e := retailEngine()
	c := cart.NewCart()
	ctx := context.Background()

	if _, err := e.Add(ctx, c, addCmd(sugar(), 0.5, units.Kilogram)); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	res, err := e.Add(ctx, c, addCmd(sugar(), 500, units.Gram))
	if err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if !res.Merged {
		t.Error("Merged=false, want merge into existing line")
	}
	if c.Len() != 1 {
		t.Fatalf("cart has %d lines, want 1", c.Len())
	}
	line := c.Lines()[0]
	if line.Quantity != 1 || line.Unit != units.Kilogram {
		t.Errorf("line = %v %s, want 1 kg", line.Quantity, line.Unit)
	}
	// Rebuilt from a fresh quote, not scaled.
	if line.LineTotal != 50 {
		t.Errorf("LineTotal = %v, want 50", line.LineTotal)
	}
}

func TestAdd_StockRejectionLeavesCartUnchanged(t *testing.T) {
	t.Parallel()

	e := retailEngine()
	c := cart.NewCart()
	ctx := context.Background()

	if _, err := e.Add(ctx, c, addCmd(biscuit(), 2, units.Piece)); err != nil {
		t.Fatalf("first Add: %v", err)
	}

	_, err := e.Add(ctx, c, addCmd(biscuit(), 3, units.Piece))
	var rej *cart.RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("Add error = %v, want *RejectedError", err)
	}
	if rej.Reason != cart.ReasonStockInsufficient {
		t.Errorf("Reason = %q, want %q", rej.Reason, cart.ReasonStockInsufficient)
	}
	if rej.StockDisplay != "4 pcs" || rej.RequestedDisplay != "5 pcs" {
		t.Errorf("displays = %q/%q, want 4 pcs / 5 pcs", rej.StockDisplay, rej.RequestedDisplay)
	}

	line := c.Lines()[0]
	if c.Len() != 1 || line.Quantity != 2 || line.LineTotal != 20 {
		t.Errorf("cart mutated on rejection: %+v", c.Lines())
	}
}

func TestAdd_AtMostOneLinePerProduct(t *testing.T) {
	t.Parallel()

	e := retailEngine()
	c := cart.NewCart()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := e.Add(ctx, c, addCmd(sugar(), 1, units.Kilogram)); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	if c.Len() != 1 {
		t.Fatalf("cart has %d lines, want 1", c.Len())
	}
	if got := c.Lines()[0].Quantity; got != 3 {
		t.Errorf("quantity = %v, want 3", got)
	}
}

func TestReplace_NormalizesAndOverwrites(t *testing.T) {
	t.Parallel()

	e := retailEngine()
	c := cart.NewCart()
	ctx := context.Background()

	if _, err := e.Add(ctx, c, addCmd(sugar(), 2, units.Kilogram)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	res, err := e.Replace(ctx, c, addCmd(sugar(), 750, units.Gram))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if res.Line.Quantity != 0.75 || res.Line.Unit != units.Kilogram {
		t.Errorf("line = %v %s, want 0.75 kg", res.Line.Quantity, res.Line.Unit)
	}
}

func TestReplace_ZeroQuantityRemovesLine(t *testing.T) {
	t.Parallel()

	e := retailEngine()
	c := cart.NewCart()
	ctx := context.Background()

	if _, err := e.Add(ctx, c, addCmd(sugar(), 2, units.Kilogram)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	res, err := e.Replace(ctx, c, addCmd(sugar(), 0, units.Kilogram))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if !res.Removed || c.Len() != 0 {
		t.Errorf("Removed=%v len=%d, want removed empty cart", res.Removed, c.Len())
	}
}

func TestAdd_WholesaleMOQ(t *testing.T) {
	t.Parallel()

	p := sugar()
	p.WholesaleMOQ = 5
	svc := pricing.New()
	e := cart.NewEngine(svc, svc, catalog.SaleWholesale)
	c := cart.NewCart()

	_, err := e.Add(context.Background(), c, addCmd(p, 2, units.Kilogram))
	var rej *cart.RejectedError
	if !errors.As(err, &rej) || rej.Reason != cart.ReasonMOQNotMet {
		t.Fatalf("Add error = %v, want MOQ rejection", err)
	}
	if c.Len() != 0 {
		t.Error("cart mutated on MOQ rejection")
	}
}

func TestAdd_BatchAllocation(t *testing.T) {
	t.Parallel()

	p := sugar()
	p.Batches = []catalog.Batch{
		{ID: "b1", Quantity: 1, SellingPrice: 40, CostPrice: 35},
		{ID: "b2", Quantity: 5, SellingPrice: 50, CostPrice: 42},
	}
	e := retailEngine()
	c := cart.NewCart()

	res, err := e.Add(context.Background(), c, addCmd(p, 3, units.Kilogram))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	// 1 kg from b1 at 40 plus 2 kg from b2 at 50.
	if res.Line.LineTotal != 140 {
		t.Errorf("LineTotal = %v, want 140", res.Line.LineTotal)
	}
	if len(res.Line.SourceBatches) != 2 || res.Line.SourceBatches[0] != "b1" || res.Line.SourceBatches[1] != "b2" {
		t.Errorf("SourceBatches = %v, want [b1 b2]", res.Line.SourceBatches)
	}
}

func TestLineTotalFloorsNeverRounds(t *testing.T) {
	t.Parallel()

	p := sugar()
	p.SellingPrice = 50.55
	p.GSTPercent = 0
	e := retailEngine()
	c := cart.NewCart()

	res, err := e.Add(context.Background(), c, addCmd(p, 0.7, units.Kilogram))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	// 0.7 * 50.55 = 35.385; floored, not rounded half-up.
	if res.Line.LineTotal != 35.38 {
		t.Errorf("LineTotal = %v, want 35.38", res.Line.LineTotal)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	e := retailEngine()
	c := cart.NewCart()
	ctx := context.Background()

	if _, err := e.Add(ctx, c, addCmd(sugar(), 2, units.Kilogram)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := e.Add(ctx, c, addCmd(biscuit(), 1, units.Piece)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	restored := cart.NewCart()
	restored.RestoreSnapshot(c.Snapshot())
	if restored.Len() != 2 {
		t.Fatalf("restored %d lines, want 2", restored.Len())
	}
	if restored.Total() != c.Total() {
		t.Errorf("restored total %v, want %v", restored.Total(), c.Total())
	}
	if restored.Lines()[0].ProductID != "p1" {
		t.Error("insertion order lost across snapshot round trip")
	}
}
