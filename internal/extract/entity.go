// Package extract finds structured facts in a normalized transcript: amount
// mentions ("20 rupees", "₹50", "20 ki"), quantity-unit mentions ("do kilo",
// "500g"), and the product names attached to them.
//
// Extraction is purely lexical — two families of patterns are matched
// independently and then reconciled. An explicit unit mention is considered
// unambiguous, so any amount mention found within a small character
// tolerance of a quantity-unit mention is discarded rather than risk
// misreading adjacent digits as a price.
package extract

import (
	"regexp"

	"github.com/kiranaops/bolbill/internal/transcript"
	"github.com/kiranaops/bolbill/internal/units"
)

// defaultOverlapTolerance is the maximum gap, in characters, at which an
// amount mention is suppressed by a nearby quantity-unit mention. The value
// is empirical; it is configurable rather than derived.
const defaultOverlapTolerance = 10

// Kind discriminates the closed set of entity variants.
type Kind int

const (
	// KindAmount is a monetary mention: "sugar worth 20 rupees".
	KindAmount Kind = iota + 1

	// KindQuantityUnit is an explicit quantity with a unit: "2 kg sugar".
	KindQuantityUnit
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindAmount:
		return "amount"
	case KindQuantityUnit:
		return "quantity-unit"
	}
	return "unknown"
}

// Entity is one extracted fact with its source span. Immutable once
// extracted. The populated fields depend on Kind: Amount for [KindAmount],
// Quantity and Unit for [KindQuantityUnit].
type Entity struct {
	Kind     Kind
	Amount   float64
	Quantity float64
	Unit     units.Unit
	Span     transcript.Span
}

// Extractor matches the lexical entity patterns against normalized text.
// It is read-only after construction and safe for concurrent use.
type Extractor struct {
	overlapTolerance int

	quantityUnit *regexp.Regexp
	amount       []*regexp.Regexp
}

// Option is a functional option for configuring an [Extractor].
type Option func(*Extractor)

// WithOverlapTolerance overrides the amount-suppression distance, in
// characters. Default: 10.
func WithOverlapTolerance(chars int) Option {
	return func(x *Extractor) {
		x.overlapTolerance = chars
	}
}

// NewExtractor compiles the entity patterns and returns an [Extractor].
func NewExtractor(opts ...Option) *Extractor {
	num := numberAlternation()
	cur := alternation(currencyWords)
	poss := alternation(possessiveParticles)
	unit := alternation(units.AliasWords())

	x := &Extractor{
		overlapTolerance: defaultOverlapTolerance,

		// A number followed by a unit word, possibly fused ("0.7kg").
		quantityUnit: regexp.MustCompile(`\b(` + num + `)\s*(` + unit + `)\b`),

		// The four amount orders, tried in this sequence.
		amount: []*regexp.Regexp{
			// number then currency word: "20 rupees"
			regexp.MustCompile(`\b(` + num + `)\s*(?:` + cur + `)\b`),
			// currency symbol then number: "₹20"
			regexp.MustCompile(`₹\s*(` + num + `)\b`),
			// currency word then number: "rs 20", "rupees 20"
			regexp.MustCompile(`\b(?:` + cur + `)\.?\s*(` + num + `)\b`),
			// number then possessive particle: "20 ki namak"
			regexp.MustCompile(`\b(` + num + `)\s+(?:` + poss + `)\b`),
		},
	}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Entities extracts every amount and quantity-unit mention from text and
// returns them sorted by span start.
//
// Quantity-unit mentions are matched first. Amount patterns are then matched
// in their fixed order; a candidate is dropped when it overlaps an entity
// already found, or when it lies within the overlap tolerance of any
// quantity-unit mention — an explicit unit wins over a "worth of" reading.
func (x *Extractor) Entities(text string) []Entity {
	var entities []Entity

	for _, m := range x.quantityUnit.FindAllStringSubmatchIndex(text, -1) {
		qty, ok := parseNumber(text[m[2]:m[3]])
		if !ok {
			continue
		}
		u, ok := units.FromWord(text[m[4]:m[5]])
		if !ok {
			continue
		}
		entities = append(entities, Entity{
			Kind:     KindQuantityUnit,
			Quantity: qty,
			Unit:     u,
			Span:     transcript.Span{Start: m[0], Length: m[1] - m[0]},
		})
	}
	quantitySpans := make([]transcript.Span, len(entities))
	for i, e := range entities {
		quantitySpans[i] = e.Span
	}

	for _, re := range x.amount {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			span := transcript.Span{Start: m[0], Length: m[1] - m[0]}
			if overlapsAny(span, entities) {
				continue
			}
			if x.nearQuantityUnit(span, quantitySpans) {
				continue
			}
			amount, ok := parseNumber(text[m[2]:m[3]])
			if !ok {
				continue
			}
			entities = append(entities, Entity{
				Kind:   KindAmount,
				Amount: amount,
				Span:   span,
			})
		}
	}

	sortBySpan(entities)
	return entities
}

// nearQuantityUnit reports whether span lies within the overlap tolerance of
// any quantity-unit span.
func (x *Extractor) nearQuantityUnit(span transcript.Span, quantitySpans []transcript.Span) bool {
	for _, qs := range quantitySpans {
		if span.Distance(qs) <= x.overlapTolerance {
			return true
		}
	}
	return false
}

// overlapsAny reports whether span overlaps any already-extracted entity.
func overlapsAny(span transcript.Span, entities []Entity) bool {
	for _, e := range entities {
		if e.Span.Overlaps(span) {
			return true
		}
	}
	return false
}

// sortBySpan orders entities by span start (insertion sort; entity lists
// are short).
func sortBySpan(entities []Entity) {
	for i := 1; i < len(entities); i++ {
		for j := i; j > 0 && entities[j].Span.Start < entities[j-1].Span.Start; j-- {
			entities[j], entities[j-1] = entities[j-1], entities[j]
		}
	}
}
