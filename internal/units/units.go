// Package units implements the unit-category model and the reconciliation
// rules used when a spoken quantity arrives in a unit different from the one
// a catalog product is stocked in.
//
// Three categories are supported: weight (kg, g), volume (l, ml), and count
// (pcs). Each measured category has a base unit (gram, millilitre) used as
// the conversion anchor; count has no sub-units.
//
// Reconciliation deliberately includes a usability shortcut: when a count
// quantity meets a measured target (or vice versa), the spoken number is
// taken as a literal quantity in the target unit. "Five pieces" of a
// loose-weight item therefore becomes five kilograms rather than a unit
// error. This is intentional shopkeeper-facing behaviour, not a fallback.
package units

// Category classifies a unit by the physical dimension it measures.
type Category int

const (
	// CategoryUnknown is the zero value for unrecognised units.
	CategoryUnknown Category = iota

	// CategoryWeight covers kg and g, anchored on grams.
	CategoryWeight

	// CategoryVolume covers l and ml, anchored on millilitres.
	CategoryVolume

	// CategoryCount covers discrete pieces.
	CategoryCount
)

// String returns the lowercase category name.
func (c Category) String() string {
	switch c {
	case CategoryWeight:
		return "weight"
	case CategoryVolume:
		return "volume"
	case CategoryCount:
		return "count"
	}
	return "unknown"
}

// Unit is a canonical unit code. Only the five canonical codes below are
// valid; spoken-language aliases are folded onto these during extraction.
type Unit string

const (
	Kilogram   Unit = "kg"
	Gram       Unit = "g"
	Litre      Unit = "l"
	Millilitre Unit = "ml"
	Piece      Unit = "pcs"
)

// Category returns the unit's physical category, or CategoryUnknown for
// unrecognised codes.
func (u Unit) Category() Category {
	switch u {
	case Kilogram, Gram:
		return CategoryWeight
	case Litre, Millilitre:
		return CategoryVolume
	case Piece:
		return CategoryCount
	}
	return CategoryUnknown
}

// IsValid reports whether u is one of the five canonical unit codes.
func (u Unit) IsValid() bool {
	return u.Category() != CategoryUnknown
}

// baseFactor returns how many base units (g, ml, or pcs) one u is.
func (u Unit) baseFactor() float64 {
	switch u {
	case Kilogram, Litre:
		return 1000
	case Gram, Millilitre, Piece:
		return 1
	}
	return 0
}

// ToBase converts quantity expressed in u into the category's base unit.
func (u Unit) ToBase(quantity float64) float64 {
	return quantity * u.baseFactor()
}

// FromBase converts a base-unit quantity into u.
func (u Unit) FromBase(base float64) float64 {
	f := u.baseFactor()
	if f == 0 {
		return 0
	}
	return base / f
}

// Major returns the category's major unit (kg, l, pcs). Compound quantities
// spoken across two units of one category are folded into the major unit.
func (c Category) Major() Unit {
	switch c {
	case CategoryWeight:
		return Kilogram
	case CategoryVolume:
		return Litre
	case CategoryCount:
		return Piece
	}
	return ""
}

// Members returns every canonical unit of the category, major unit first.
// Used to offer corrective alternatives when reconciliation fails.
func (c Category) Members() []Unit {
	switch c {
	case CategoryWeight:
		return []Unit{Kilogram, Gram}
	case CategoryVolume:
		return []Unit{Litre, Millilitre}
	case CategoryCount:
		return []Unit{Piece}
	}
	return nil
}

// Reconciled is the result of mapping a spoken (quantity, unit) pair onto a
// target unit.
type Reconciled struct {
	// Quantity is the reconciled quantity. When Compatible is false it is
	// the spoken quantity unchanged.
	Quantity float64

	// Unit is the reconciled unit. When Compatible is false it is the
	// spoken unit unchanged.
	Unit Unit

	// Compatible reports whether the spoken unit could be mapped onto the
	// target unit at all.
	Compatible bool

	// Alternatives lists the units the caller could correct to when
	// Compatible is false. Empty otherwise.
	Alternatives []Unit
}

// Reconcile maps a quantity spoken in `from` onto the `to` unit.
//
// Rules, in order:
//
//	a. count → count: quantity unchanged, target unit.
//	b. same measured category: linear conversion through the base unit.
//	c. count → weight/volume: the spoken number is taken as a literal
//	   quantity in the target unit ("5 pieces" of a kg item means 5 kg).
//	d. weight/volume → count: symmetric literal shortcut.
//	e. weight ↔ volume: incompatible; quantity and unit pass through
//	   unchanged with Compatible=false and the target category's units
//	   offered as Alternatives.
func Reconcile(quantity float64, from, to Unit) Reconciled {
	fc, tc := from.Category(), to.Category()

	switch {
	case fc == CategoryCount && tc == CategoryCount:
		return Reconciled{Quantity: quantity, Unit: to, Compatible: true}

	case fc == tc:
		base := from.ToBase(quantity)
		return Reconciled{Quantity: to.FromBase(base), Unit: to, Compatible: true}

	case fc == CategoryCount || tc == CategoryCount:
		// Literal shortcut in both directions.
		return Reconciled{Quantity: quantity, Unit: to, Compatible: true}
	}

	return Reconciled{
		Quantity:     quantity,
		Unit:         from,
		Compatible:   false,
		Alternatives: tc.Members(),
	}
}
