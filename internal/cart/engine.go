package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/kiranaops/bolbill/internal/catalog"
	"github.com/kiranaops/bolbill/internal/command"
	"github.com/kiranaops/bolbill/internal/units"
)

// ErrUnitMismatch is returned when an incoming quantity cannot be converted
// into the existing line's unit. The cart is left unchanged.
var ErrUnitMismatch = errors.New("cart: unit mismatch with existing line")

// Rejection reasons carried by [RejectedError].
const (
	ReasonStockInsufficient = "stock-insufficient"
	ReasonMOQNotMet         = "moq-not-met"
)

// RejectedError is the structured merge rejection: the cart was left
// completely unchanged and the display strings describe why.
type RejectedError struct {
	Reason           string
	StockDisplay     string
	RequestedDisplay string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("cart: merge rejected (%s): requested %s, available %s",
		e.Reason, e.RequestedDisplay, e.StockDisplay)
}

// Quote is the pricing service's answer for one line quantity.
type Quote struct {
	TotalSellingPrice float64
	TotalCostPrice    float64
	UsedBatches       []string
}

// Pricer computes batch-weighted totals for a quantity of one product. The
// engine rebuilds lines exclusively through it, never by scaling a previous
// total.
type Pricer interface {
	Price(ctx context.Context, p catalog.Product, quantity float64, unit units.Unit, mode catalog.SaleMode) (Quote, error)
}

// StockResult is the stock service's verdict on a requested quantity.
type StockResult struct {
	Available        bool
	StockDisplay     string
	RequestedDisplay string
}

// StockChecker validates a requested quantity against available stock.
type StockChecker interface {
	CheckStock(ctx context.Context, p catalog.Product, quantity float64, unit units.Unit) (StockResult, error)
}

// Result reports one successful cart mutation.
type Result struct {
	// Line is the rebuilt line. Zero value when Removed is true.
	Line Line

	// Merged is true when the addition combined with an existing line.
	Merged bool

	// Removed is true when a replace dropped the line (quantity <= 0).
	Removed bool
}

// Engine applies resolved commands to a cart. Validation and pricing are
// delegated; every mutation is all-or-nothing.
type Engine struct {
	pricer Pricer
	stock  StockChecker
	mode   catalog.SaleMode
}

// NewEngine returns an [Engine] using the given services in the given sale
// mode.
func NewEngine(pricer Pricer, stock StockChecker, mode catalog.SaleMode) *Engine {
	return &Engine{pricer: pricer, stock: stock, mode: mode}
}

// Add merges a resolved command into the cart.
//
// When the product already has a line the incoming quantity is converted
// into that line's unit and the combined total is validated; on rejection
// the cart is untouched and a [*RejectedError] is returned. On success the
// line is rebuilt from scratch through the pricing service.
func (e *Engine) Add(ctx context.Context, c *Cart, rc command.ResolvedCommand) (Result, error) {
	key := LineKey(rc.Product)
	quantity, unit := rc.Quantity, rc.Unit
	merged := false

	if existing, ok := c.Line(key); ok {
		rec := units.Reconcile(rc.Quantity, rc.Unit, existing.Unit)
		if !rec.Compatible {
			return Result{}, fmt.Errorf("%w: %s into %s", ErrUnitMismatch, rc.Unit, existing.Unit)
		}
		quantity = existing.Quantity + rec.Quantity
		unit = existing.Unit
		merged = true
	}

	line, err := e.validateAndBuild(ctx, rc.Product, quantity, unit)
	if err != nil {
		return Result{}, err
	}
	c.put(key, line)
	return Result{Line: line, Merged: merged}, nil
}

// Replace overwrites the product's line with the command's quantity,
// normalizing into the existing line's unit when the categories match. A
// resulting quantity of zero or less removes the line instead.
func (e *Engine) Replace(ctx context.Context, c *Cart, rc command.ResolvedCommand) (Result, error) {
	key := LineKey(rc.Product)
	quantity, unit := rc.Quantity, rc.Unit

	if existing, ok := c.Line(key); ok && rc.Unit.Category() == existing.Unit.Category() {
		rec := units.Reconcile(rc.Quantity, rc.Unit, existing.Unit)
		quantity, unit = rec.Quantity, existing.Unit
	}

	if quantity <= 0 {
		c.remove(key)
		return Result{Removed: true}, nil
	}

	line, err := e.validateAndBuild(ctx, rc.Product, quantity, unit)
	if err != nil {
		return Result{}, err
	}
	c.put(key, line)
	return Result{Line: line}, nil
}

// validateAndBuild runs the MOQ and stock checks for the full target
// quantity, then rebuilds the line from a fresh quote.
func (e *Engine) validateAndBuild(ctx context.Context, p catalog.Product, quantity float64, unit units.Unit) (Line, error) {
	if e.mode == catalog.SaleWholesale && p.WholesaleMOQ > 0 {
		native := units.Reconcile(quantity, unit, p.NativeUnit)
		if native.Compatible && native.Quantity < p.WholesaleMOQ {
			return Line{}, &RejectedError{
				Reason:           ReasonMOQNotMet,
				StockDisplay:     displayQuantity(p.WholesaleMOQ, p.NativeUnit),
				RequestedDisplay: displayQuantity(quantity, unit),
			}
		}
	}

	res, err := e.stock.CheckStock(ctx, p, quantity, unit)
	if err != nil {
		return Line{}, fmt.Errorf("stock check for %q: %w", p.Name, err)
	}
	if !res.Available {
		return Line{}, &RejectedError{
			Reason:           ReasonStockInsufficient,
			StockDisplay:     res.StockDisplay,
			RequestedDisplay: res.RequestedDisplay,
		}
	}

	quote, err := e.pricer.Price(ctx, p, quantity, unit, e.mode)
	if err != nil {
		return Line{}, fmt.Errorf("pricing %q: %w", p.Name, err)
	}

	total := floor2(quote.TotalSellingPrice)
	return Line{
		ProductID:     p.ID,
		ProductName:   p.Name,
		Quantity:      quantity,
		Unit:          unit,
		UnitPrice:     p.EffectivePrice(),
		GSTAmount:     gstPortion(total, p.GSTPercent),
		LineTotal:     total,
		CostTotal:     floor2(quote.TotalCostPrice),
		SourceBatches: quote.UsedBatches,
	}, nil
}
