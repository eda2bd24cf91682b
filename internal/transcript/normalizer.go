package transcript

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kiranaops/bolbill/internal/units"
)

// compoundPattern matches two adjacent quantity-unit mentions, e.g.
// "1 kg 200 g" or "500g 200g". Whether the two unit words belong to the
// same measured category is checked after the regex match.
var compoundPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-z]+)\s+(\d+(?:\.\d+)?)\s*([a-z]+)`)

// Normalize lowercases and trims raw, then folds every compound quantity
// mention into a single token expressed in the category's major unit:
// "1 kg 200 g" becomes "1.2kg", "500g 200g" becomes "0.7kg".
//
// Folding converts both operands to the category's base unit, sums, and
// converts back to the major unit. Replacements are applied right-to-left by
// start offset so that earlier offsets stay valid while later text is being
// rewritten. No entity extraction happens here; this stage only removes
// ambiguity for the extractor.
func Normalize(raw string) string {
	return normalizeKeeping(raw, nil)
}

// normalizeKeeping is [Normalize] with folding suppressed wherever a
// compound overlaps one of the keep spans: those ranges were consumed by an
// earlier pass and must keep reading byte-identically, otherwise the
// session's shields would point at text that no longer exists.
func normalizeKeeping(raw string, keep []Span) string {
	text := strings.ToLower(strings.TrimSpace(raw))

	type fold struct {
		start, end int
		replacement string
	}
	var folds []fold

	for _, m := range compoundPattern.FindAllStringSubmatchIndex(text, -1) {
		if overlapsKept(Span{Start: m[0], Length: m[1] - m[0]}, keep) {
			continue
		}
		qty1 := text[m[2]:m[3]]
		word1 := text[m[4]:m[5]]
		qty2 := text[m[6]:m[7]]
		word2 := text[m[8]:m[9]]

		u1, ok1 := units.FromWord(word1)
		u2, ok2 := units.FromWord(word2)
		if !ok1 || !ok2 {
			continue
		}
		cat := u1.Category()
		if cat != u2.Category() || cat == units.CategoryCount {
			continue
		}

		q1, err1 := strconv.ParseFloat(qty1, 64)
		q2, err2 := strconv.ParseFloat(qty2, 64)
		if err1 != nil || err2 != nil {
			continue
		}

		major := cat.Major()
		total := major.FromBase(u1.ToBase(q1) + u2.ToBase(q2))
		folds = append(folds, fold{
			start:       m[0],
			end:         m[1],
			replacement: strconv.FormatFloat(total, 'f', -1, 64) + string(major),
		})
	}

	// Right-to-left so earlier offsets survive the rewrites.
	sort.Slice(folds, func(i, j int) bool { return folds[i].start > folds[j].start })
	for _, f := range folds {
		text = text[:f.start] + f.replacement + text[f.end:]
	}

	return text
}

// overlapsKept reports whether span overlaps any keep span.
func overlapsKept(span Span, keep []Span) bool {
	for _, k := range keep {
		if k.Overlaps(span) {
			return true
		}
	}
	return false
}
