// Package transcript models a single speech session's accumulating text: the
// raw utterance, its normalized form, and the arena of character spans that
// have already been interpreted.
//
// A transcript grows while the customer keeps talking. The engine may
// process the same (longer) text several times, so every span it consumes is
// shielded in the session's [ShieldArena]; shielded ranges are excluded from
// later interpretation passes, which is what prevents one spoken clause from
// being billed twice.
package transcript

// Span is a half-open character range [Start, Start+Length) into the
// normalized transcript text.
type Span struct {
	Start  int
	Length int
}

// End returns the exclusive end offset of the span.
func (s Span) End() int { return s.Start + s.Length }

// Overlaps reports whether s and o share at least one character.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End() && o.Start < s.End()
}

// Contains reports whether offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End()
}

// Distance returns the gap in characters between s and o, or 0 when they
// overlap or touch. Used for the amount-versus-unit suppression tolerance.
func (s Span) Distance(o Span) int {
	if s.Overlaps(o) {
		return 0
	}
	if s.End() <= o.Start {
		return o.Start - s.End()
	}
	return s.Start - o.End()
}

// Union returns the smallest span covering both s and o.
func (s Span) Union(o Span) Span {
	start := s.Start
	if o.Start < start {
		start = o.Start
	}
	end := s.End()
	if o.End() > end {
		end = o.End()
	}
	return Span{Start: start, Length: end - start}
}

// consumed is one shielded range together with the text it covered when it
// was recorded. The text is what lets a later pass detect that normalization
// rewrote material under the span.
type consumed struct {
	span Span
	text string
}

// ShieldArena records which spans of a session's transcript have already
// been consumed as part of a named command. It lives for the whole speech
// session and is passed explicitly into every extraction call — the arena is
// the only state shared across incremental re-processing of a growing
// utterance.
//
// The arena is not safe for concurrent use; the dispatch layer serializes
// all processing for a session.
type ShieldArena struct {
	spans []consumed
}

// NewShieldArena returns an empty arena.
func NewShieldArena() *ShieldArena {
	return &ShieldArena{}
}

// Shield marks span as consumed. text is the normalized text the span
// covered when it was recorded; an empty text skips the stability check for
// this span. Zero-length spans are ignored.
func (a *ShieldArena) Shield(span Span, text string) {
	if span.Length <= 0 {
		return
	}
	a.spans = append(a.spans, consumed{span: span, text: text})
}

// Shielded reports whether span overlaps any consumed range.
func (a *ShieldArena) Shielded(span Span) bool {
	for _, c := range a.spans {
		if c.span.Overlaps(span) {
			return true
		}
	}
	return false
}

// Covers reports whether the single character at offset is consumed.
func (a *ShieldArena) Covers(offset int) bool {
	for _, c := range a.spans {
		if c.span.Contains(offset) {
			return true
		}
	}
	return false
}

// Spans returns a copy of all consumed spans, in insertion order.
func (a *ShieldArena) Spans() []Span {
	out := make([]Span, len(a.spans))
	for i, c := range a.spans {
		out[i] = c.span
	}
	return out
}

// stable reports whether every consumed span still reads its recorded text
// in normalized. Spans recorded without text are skipped.
func (a *ShieldArena) stable(normalized string) bool {
	for _, c := range a.spans {
		if c.text == "" {
			continue
		}
		if c.span.End() > len(normalized) || normalized[c.span.Start:c.span.End()] != c.text {
			return false
		}
	}
	return true
}

// Reset discards all consumed spans. Called when a session starts over.
func (a *ShieldArena) Reset() {
	a.spans = nil
}

// Transcript pairs a raw utterance with its normalized text and the
// session's shield arena. Entities and spans always index into Normalized.
type Transcript struct {
	// Raw is the text exactly as delivered by speech recognition.
	Raw string

	// Normalized is the lowercased, compound-folded processing text.
	Normalized string

	// Shield is the session-scoped arena of consumed spans. Never nil.
	Shield *ShieldArena
}

// New normalizes raw and attaches the given arena. A nil arena gets a fresh
// one, which makes single-shot use (and tests) convenient.
//
// Consumed spans index into the normalized text of the pass that recorded
// them, so normalization of a grown transcript must never rewrite that text.
// When a compound quantity straddles a consumed range ("chini 500 g" growing
// into "chini 500 g 200 g"), folding it would shift the fresh quantity into
// a stale shield; such folds are suppressed so only genuinely new text
// remains interpretable.
func New(raw string, arena *ShieldArena) *Transcript {
	if arena == nil {
		arena = NewShieldArena()
	}
	normalized := Normalize(raw)
	if !arena.stable(normalized) {
		normalized = normalizeKeeping(raw, arena.Spans())
	}
	return &Transcript{
		Raw:        raw,
		Normalized: normalized,
		Shield:     arena,
	}
}

// Consume shields span together with the text it currently covers, so later
// passes can verify the text under the span did not move.
func (t *Transcript) Consume(span Span) {
	if span.Length <= 0 || span.End() > len(t.Normalized) {
		return
	}
	t.Shield.Shield(span, t.Normalized[span.Start:span.End()])
}
