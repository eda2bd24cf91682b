package units

import "strings"

// aliases folds spoken unit words — English, romanized Hindi, and common
// speech-recognition spellings — onto canonical unit codes.
var aliases = map[string]Unit{
	// weight
	"kg":        Kilogram,
	"kgs":       Kilogram,
	"kilo":      Kilogram,
	"kilos":     Kilogram,
	"kilogram":  Kilogram,
	"kilograms": Kilogram,
	"g":         Gram,
	"gm":        Gram,
	"gms":       Gram,
	"gram":      Gram,
	"grams":     Gram,

	// volume
	"l":           Litre,
	"ltr":         Litre,
	"litre":       Litre,
	"litres":      Litre,
	"liter":       Litre,
	"liters":      Litre,
	"ml":          Millilitre,
	"millilitre":  Millilitre,
	"millilitres": Millilitre,
	"milliliter":  Millilitre,
	"milliliters": Millilitre,

	// count
	"pc":      Piece,
	"pcs":     Piece,
	"piece":   Piece,
	"pieces":  Piece,
	"packet":  Piece,
	"packets": Piece,
	"packs":   Piece,
	"pack":    Piece,
	"nag":     Piece,
	"dibba":   Piece,
}

// AliasWords returns every recognised spoken unit word. The extractor builds
// its lexical patterns from this list so the two packages cannot drift.
func AliasWords() []string {
	out := make([]string, 0, len(aliases))
	for w := range aliases {
		out = append(out, w)
	}
	return out
}

// FromWord resolves a spoken unit word to its canonical unit code.
func FromWord(word string) (Unit, bool) {
	u, ok := aliases[strings.ToLower(strings.TrimSpace(word))]
	return u, ok
}

// IsMinor reports whether u is the sub-unit of a measured category (g, ml).
// Compound folding rewrites minor-unit pairs into the category's major unit.
func (u Unit) IsMinor() bool {
	return u == Gram || u == Millilitre
}
