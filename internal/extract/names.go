package extract

import (
	"regexp"
	"strings"

	"github.com/kiranaops/bolbill/internal/catalog"
	"github.com/kiranaops/bolbill/internal/transcript"
	"github.com/kiranaops/bolbill/internal/units"
)

const (
	// backwardWordCap limits how many words before an entity are considered
	// when recovering the product name it refers to.
	backwardWordCap = 5

	// forwardWordCap limits the forward window used when nothing usable
	// precedes the entity ("20 rupees of sugar" word order).
	forwardWordCap = 3

	// minNameLength is the shortest recovered name accepted before the
	// extractor falls through to the next recovery strategy.
	minNameLength = 2
)

// separatorPattern splits an utterance into enumeration segments: commas,
// semicolons, and the bilingual connective words.
var separatorPattern = regexp.MustCompile(`,|;|\b(?:` + alternation(separatorWords) + `)\b`)

// NamedCommand pairs a candidate product mention with at most one entity.
// Entity is nil for bare mentions, which default to quantity one in the
// product's native unit.
type NamedCommand struct {
	// SpokenName is the recovered product name text.
	SpokenName string

	// Entity is the amount or quantity-unit fact this name belongs to.
	// Nil for bare mentions.
	Entity *Entity

	// Span is the transcript range this command consumed.
	Span transcript.Span
}

// Commands runs the full extraction for one processing pass: entities are
// extracted, each is paired with the product name it refers to (shielding
// the consumed range), and the remaining unshielded text is segmented into
// bare mentions.
//
// products is the current catalog snapshot; it feeds the last-resort name
// recovery and the n-gram bare-mention matching.
func (x *Extractor) Commands(t *transcript.Transcript, products []catalog.Product) []NamedCommand {
	entities := x.Entities(t.Normalized)

	// Entities inside shielded ranges were consumed by an earlier pass
	// over this (growing) transcript and must not be re-applied.
	active := entities[:0]
	for _, e := range entities {
		if !t.Shield.Shielded(e.Span) {
			active = append(active, e)
		}
	}

	var commands []NamedCommand
	for i := range active {
		nc := x.nameFor(t, active[i], active, products)
		t.Consume(nc.Span)
		commands = append(commands, nc)
	}

	bare := x.bareMentions(t, products, len(active) == 0)
	for _, nc := range bare {
		t.Consume(nc.Span)
		commands = append(commands, nc)
	}
	return commands
}

// nameFor recovers the product name text an entity refers to.
//
// Strategy order:
//  1. Backward: the text between the end of the nearest preceding entity
//     (or any shielded range, or transcript start) and the entity, clipped
//     to the current enumeration clause and capped to the last five words.
//  2. Forward: the text between the entity and the nearest following
//     entity, clipped and capped to the first three words.
//  3. Continuation: the backward window again, this time allowed to read
//     shielded text. A quantity with nothing fresh around it extends the
//     clause an earlier pass consumed ("chini 500 g" growing into
//     "chini 500 g 200 g"), so that clause's name is reused.
//  4. Catalog scan: the product whose name (or any >3-character word of it)
//     occurs in the transcript closest to the entity.
//
// Stop words are stripped in strategies 1 through 3. The returned command's
// span covers the entity plus the name region it consumed.
func (x *Extractor) nameFor(t *transcript.Transcript, e Entity, all []Entity, products []catalog.Product) NamedCommand {
	text := t.Normalized

	// Backward window.
	boundary := 0
	for _, other := range all {
		if end := other.Span.End(); end <= e.Span.Start && end > boundary {
			boundary = end
		}
	}
	backSpan := x.clauseClip(t, transcript.Span{Start: boundary, Length: e.Span.Start - boundary}, false)
	name := cleanName(text[backSpan.Start:backSpan.End()], backwardWordCap, true)
	if len(name) >= minNameLength {
		return NamedCommand{
			SpokenName: name,
			Entity:     &e,
			Span:       e.Span.Union(backSpan),
		}
	}

	// Forward window.
	limit := len(text)
	for _, other := range all {
		if start := other.Span.Start; start >= e.Span.End() && start < limit {
			limit = start
		}
	}
	fwdSpan := x.clauseClip(t, transcript.Span{Start: e.Span.End(), Length: limit - e.Span.End()}, true)
	name = cleanName(text[fwdSpan.Start:fwdSpan.End()], forwardWordCap, false)
	if len(name) >= minNameLength {
		return NamedCommand{
			SpokenName: name,
			Entity:     &e,
			Span:       e.Span.Union(fwdSpan),
		}
	}

	// Continuation window: the name text lives inside an already consumed
	// range, which is fine to read for naming — the shield only prevents
	// its quantities from being billed again.
	contSpan := x.separatorClip(t, transcript.Span{Start: boundary, Length: e.Span.Start - boundary}, false)
	name = cleanName(text[contSpan.Start:contSpan.End()], backwardWordCap, true)
	if len(name) >= minNameLength {
		return NamedCommand{SpokenName: name, Entity: &e, Span: e.Span}
	}

	// Last resort: closest catalog product mentioned anywhere in the text.
	if p, ok := closestProduct(text, e.Span, products); ok {
		return NamedCommand{SpokenName: p.Name, Entity: &e, Span: e.Span}
	}

	return NamedCommand{SpokenName: "", Entity: &e, Span: e.Span}
}

// clauseClip shrinks span so it stays within the entity's enumeration
// clause and outside shielded ranges. For a backward window the span is
// clipped from the left (after the last separator and any shield); for a
// forward window from the right (before the first separator or shield).
func (x *Extractor) clauseClip(t *transcript.Transcript, span transcript.Span, forward bool) transcript.Span {
	span = x.separatorClip(t, span, forward)
	start, end := span.Start, span.End()

	for _, sh := range t.Shield.Spans() {
		if !sh.Overlaps(span) {
			continue
		}
		if forward {
			if sh.Start < end {
				end = sh.Start
			}
		} else if sh.End() > start {
			start = sh.End()
		}
	}

	if end < start {
		end = start
	}
	return transcript.Span{Start: start, Length: end - start}
}

// separatorClip shrinks span to the entity's enumeration clause without
// regard to shielded ranges: after the last separator for a backward window,
// before the first one for a forward window.
func (x *Extractor) separatorClip(t *transcript.Transcript, span transcript.Span, forward bool) transcript.Span {
	if span.Length <= 0 {
		return transcript.Span{Start: span.Start}
	}
	base := span.Start
	start, end := span.Start, span.End()

	separators := separatorPattern.FindAllStringIndex(t.Normalized[base:end], -1)
	if len(separators) > 0 {
		if forward {
			end = base + separators[0][0]
		} else {
			start = base + separators[len(separators)-1][1]
		}
	}
	return transcript.Span{Start: start, Length: end - start}
}

// cleanName splits region text into words, keeps at most cap words from the
// end (fromEnd) or start, strips stop words, bare numbers, and number-unit
// pairs, and rejoins. A unit word is only stripped right after a number;
// stripping it on its own would maim names like "gram flour".
func cleanName(region string, wordCap int, fromEnd bool) string {
	words := strings.Fields(region)
	if len(words) > wordCap {
		if fromEnd {
			words = words[len(words)-wordCap:]
		} else {
			words = words[:wordCap]
		}
	}
	kept := words[:0]
	for i := 0; i < len(words); i++ {
		w := words[i]
		if isStopWord(w) {
			continue
		}
		if _, isNum := parseNumber(w); isNum {
			if i+1 < len(words) {
				if _, isUnit := units.FromWord(words[i+1]); isUnit {
					i++
				}
			}
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// closestProduct scans text for any catalog product name, or any word of
// one longer than three characters, and returns the product whose
// occurrence lies closest to span.
func closestProduct(text string, span transcript.Span, products []catalog.Product) (catalog.Product, bool) {
	best := -1
	var bestProduct catalog.Product

	for _, p := range products {
		nameLower := strings.ToLower(p.Name)
		candidates := []string{nameLower}
		for _, w := range strings.Fields(nameLower) {
			if len(w) > 3 {
				candidates = append(candidates, w)
			}
		}

		for _, c := range candidates {
			idx := strings.Index(text, c)
			if idx < 0 {
				continue
			}
			d := transcript.Span{Start: idx, Length: len(c)}.Distance(span)
			if best < 0 || d < best {
				best = d
				bestProduct = p
			}
		}
	}
	return bestProduct, best >= 0
}

// bareMentions segments the unshielded remainder of the transcript into
// product mentions with implicit quantity one.
//
// The text is split on enumeration separators, skipping segments that
// overlap shielded ranges. When the whole transcript is a single
// separator-free segment and no entities were found at all, short segments
// are taken verbatim as one product name while longer ones go through
// n-gram catalog matching (three-word and two-word windows first, then
// single words) before falling back to the whole segment.
func (x *Extractor) bareMentions(t *transcript.Transcript, products []catalog.Product, noEntities bool) []NamedCommand {
	text := t.Normalized

	var spans []transcript.Span
	prev := 0
	boundaries := separatorPattern.FindAllStringIndex(text, -1)
	for _, b := range boundaries {
		spans = append(spans, transcript.Span{Start: prev, Length: b[0] - prev})
		prev = b[1]
	}
	spans = append(spans, transcript.Span{Start: prev, Length: len(text) - prev})

	var live []segment
	for _, s := range spans {
		for _, part := range subtractShielded(s, t.Shield.Spans()) {
			span, txt := trimSpan(text, part)
			if txt == "" {
				continue
			}
			live = append(live, segment{span: span, text: txt})
		}
	}

	// Single separator-free segment: apply the short-name / n-gram rules,
	// but only when the transcript produced no entities at all.
	if noEntities && len(boundaries) == 0 && len(live) == 1 {
		seg := live[0]
		words := strings.Fields(seg.text)
		if len(words) < 3 && len(seg.text) < 20 {
			return []NamedCommand{{SpokenName: seg.text, Span: seg.span}}
		}
		if found := ngramMentions(seg, words, products); len(found) > 0 {
			return found
		}
		return []NamedCommand{{SpokenName: seg.text, Span: seg.span}}
	}

	out := make([]NamedCommand, 0, len(live))
	for _, s := range live {
		name := cleanName(s.text, backwardWordCap, true)
		if name == "" {
			continue
		}
		out = append(out, NamedCommand{SpokenName: name, Span: s.span})
	}
	return out
}

// segment is one enumeration clause of the transcript with its span.
type segment struct {
	span transcript.Span
	text string
}

// subtractShielded returns the parts of span not covered by any shielded
// range, in left-to-right order.
func subtractShielded(span transcript.Span, shielded []transcript.Span) []transcript.Span {
	parts := []transcript.Span{span}
	for _, sh := range shielded {
		var next []transcript.Span
		for _, p := range parts {
			if !p.Overlaps(sh) {
				next = append(next, p)
				continue
			}
			if sh.Start > p.Start {
				next = append(next, transcript.Span{Start: p.Start, Length: sh.Start - p.Start})
			}
			if sh.End() < p.End() {
				next = append(next, transcript.Span{Start: sh.End(), Length: p.End() - sh.End()})
			}
		}
		parts = next
	}
	return parts
}

// ngramMentions slides three-word and two-word windows over the segment,
// then single words longer than two characters, accumulating every distinct
// catalog product matched.
func ngramMentions(seg segment, words []string, products []catalog.Product) []NamedCommand {
	seen := make(map[string]struct{})
	var out []NamedCommand

	record := func(p catalog.Product) {
		key := p.ID
		if key == "" {
			key = strings.ToLower(p.Name)
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, NamedCommand{SpokenName: p.Name, Span: seg.span})
	}

	for _, n := range []int{3, 2} {
		for i := 0; i+n <= len(words); i++ {
			window := strings.Join(words[i:i+n], " ")
			if p, ok := matchWindow(window, products); ok {
				record(p)
			}
		}
	}
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		if p, ok := matchWindow(w, products); ok {
			record(p)
		}
	}
	return out
}

// matchWindow tests one n-gram against the catalog: a window matches a
// product when it equals the name or is contained in it (or vice versa for
// windows longer than three characters).
func matchWindow(window string, products []catalog.Product) (catalog.Product, bool) {
	for _, p := range products {
		name := strings.ToLower(p.Name)
		if window == name {
			return p, true
		}
		if strings.Contains(name, window) && len(window) > 3 {
			return p, true
		}
		if strings.Contains(window, name) && len(name) > 3 {
			return p, true
		}
	}
	return catalog.Product{}, false
}

// trimSpan removes leading and trailing whitespace from the spanned text,
// adjusting the span to match.
func trimSpan(text string, span transcript.Span) (transcript.Span, string) {
	raw := text[span.Start:span.End()]
	trimmed := strings.TrimLeft(raw, " \t")
	start := span.Start + (len(raw) - len(trimmed))
	trimmed = strings.TrimRight(trimmed, " \t")
	return transcript.Span{Start: start, Length: len(trimmed)}, trimmed
}
