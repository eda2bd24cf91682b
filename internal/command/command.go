// Package command turns named product mentions into fully resolved order
// commands: the catalog product, a quantity in a concrete unit, and any
// warnings the seller should see.
//
// Resolution is per-command and never aborts a batch. A command that cannot
// be interpreted reports its own failure; the caller keeps going with the
// rest of the transcript.
package command

import (
	"errors"
	"fmt"
	"math"

	"github.com/kiranaops/bolbill/internal/catalog"
	"github.com/kiranaops/bolbill/internal/extract"
	"github.com/kiranaops/bolbill/internal/resolve"
	"github.com/kiranaops/bolbill/internal/units"
)

// ErrInvalidQuantity marks a command whose resolved quantity is non-finite,
// non-positive, or fractional for a count-type unit. Such commands are
// dropped before the merge stage.
var ErrInvalidQuantity = errors.New("invalid quantity")

// WarnPriceMissing is attached to an amount-based command when the product
// has no positive price. The command is still surfaced so the seller sees
// the charge instead of losing it silently.
const WarnPriceMissing = "price missing"

// ResolvedCommand is one fully interpreted order instruction.
type ResolvedCommand struct {
	// Product is the resolved catalog entry. Zero value when Matched is
	// false.
	Product catalog.Product

	// SpokenName is the recovered name text, kept for user-facing display
	// of unmatched commands.
	SpokenName string

	// MatchStage names the resolver stage that matched. Empty when
	// Matched is false.
	MatchStage string

	// Matched reports whether the resolver found a product.
	Matched bool

	// Quantity and Unit are the resolved order quantity. For an
	// incompatible unit mention they carry the spoken values unchanged.
	Quantity float64
	Unit     units.Unit

	// AmountPaid is the monetary amount for amount-based commands.
	AmountPaid    float64
	IsAmountBased bool

	// UnitCompatible is false when the spoken unit cannot be reconciled
	// with the product's native unit. RequiredUnit and UnitOptions then
	// carry what a corrective prompt needs.
	UnitCompatible bool
	RequiredUnit   units.Unit
	UnitOptions    []units.Unit

	// Warnings are non-fatal findings such as [WarnPriceMissing].
	Warnings []string
}

// Interpreter resolves named commands against a catalog snapshot.
type Interpreter struct {
	resolver *resolve.Resolver
}

// NewInterpreter returns an [Interpreter] backed by the given resolver.
func NewInterpreter(r *resolve.Resolver) *Interpreter {
	return &Interpreter{resolver: r}
}

// Interpret resolves one named command.
//
// An unmatched product name is not an error: the returned command carries
// Matched=false and the original spoken text. The error return is reserved
// for commands that matched a product but resolved to an unusable quantity,
// wrapping [ErrInvalidQuantity].
func (in *Interpreter) Interpret(nc extract.NamedCommand, products []catalog.Product) (ResolvedCommand, error) {
	m, ok := in.resolver.Resolve(nc.SpokenName, products)
	if !ok {
		return ResolvedCommand{SpokenName: nc.SpokenName}, nil
	}

	rc := ResolvedCommand{
		Product:        m.Product,
		SpokenName:     nc.SpokenName,
		MatchStage:     m.Stage,
		Matched:        true,
		UnitCompatible: true,
	}

	switch {
	case nc.Entity == nil:
		rc.Quantity = 1
		rc.Unit = m.Product.NativeUnit

	case nc.Entity.Kind == extract.KindQuantityUnit:
		rec := units.Reconcile(nc.Entity.Quantity, nc.Entity.Unit, m.Product.NativeUnit)
		rc.Quantity = rec.Quantity
		rc.Unit = rec.Unit
		if !rec.Compatible {
			rc.UnitCompatible = false
			rc.RequiredUnit = m.Product.NativeUnit
			rc.UnitOptions = rec.Alternatives
			// Incompatible commands carry the spoken values for the
			// corrective prompt; quantity validation does not apply.
			return rc, nil
		}

	case nc.Entity.Kind == extract.KindAmount:
		rc.IsAmountBased = true
		rc.AmountPaid = nc.Entity.Amount
		rc.Unit = m.Product.NativeUnit

		price := m.Product.EffectivePrice()
		if price <= 0 {
			// Placeholder quantity so the charge stays visible: one for
			// count units, zero for measured ones.
			if m.Product.NativeUnit.Category() == units.CategoryCount {
				rc.Quantity = 1
			} else {
				rc.Quantity = 0
			}
			rc.Warnings = append(rc.Warnings, WarnPriceMissing)
			return rc, nil
		}
		rc.Quantity = nc.Entity.Amount / price
	}

	if err := validateQuantity(rc.Quantity, rc.Unit); err != nil {
		return ResolvedCommand{}, fmt.Errorf("%s: %w", nc.SpokenName, err)
	}
	return rc, nil
}

// validateQuantity rejects quantities the merge stage must never see.
func validateQuantity(qty float64, unit units.Unit) error {
	if math.IsNaN(qty) || math.IsInf(qty, 0) {
		return fmt.Errorf("%w: not finite", ErrInvalidQuantity)
	}
	if qty <= 0 {
		return fmt.Errorf("%w: %v is not positive", ErrInvalidQuantity, qty)
	}
	if unit.Category() == units.CategoryCount && qty != math.Trunc(qty) {
		return fmt.Errorf("%w: %v %s must be whole", ErrInvalidQuantity, qty, unit)
	}
	return nil
}
