// Package resolve maps a spoken product name onto a catalog entry using an
// ordered cascade of matching strategies.
//
// The cascade runs cheapest-first: vocabulary substitution, exact equality,
// prefix match, multi-word overlap, fuzzy edit-distance scoring, and finally
// a phonetic mis-transcription pass that substitutes known speech-recognition
// confusions and re-runs the whole cascade once. The first stage producing
// any match wins; within a stage the longest or best-scoring candidate wins,
// with ties broken by catalog order.
//
// Resolution is deterministic for a given catalog snapshot. A Resolver is
// read-only after construction and safe for concurrent use.
package resolve

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/kiranaops/bolbill/internal/catalog"
)

const (
	// defaultFuzzyThreshold is the minimum normalized edit-distance score a
	// fuzzy candidate must exceed. Empirically chosen in production use;
	// configurable rather than re-derived.
	defaultFuzzyThreshold = 0.65

	// containmentBonus is added to a fuzzy score when the spoken text is
	// contained in the product name and longer than three characters.
	containmentBonus = 0.2

	// lengthPenalty is subtracted when the name-length difference exceeds
	// lengthPenaltyGap characters.
	lengthPenalty    = 0.3
	lengthPenaltyGap = 10
)

// Strategy is one stage of the resolution cascade. It returns the matched
// product and true, or false when the stage has no opinion.
type Strategy struct {
	// Name labels the stage in logs and metrics.
	Name string

	// Match runs the stage against the catalog snapshot.
	Match func(spoken string, products []catalog.Product) (catalog.Product, bool)
}

// Option is a functional option for configuring a [Resolver].
type Option func(*Resolver)

// WithFuzzyThreshold overrides the minimum accepted fuzzy score.
// Default: 0.65.
func WithFuzzyThreshold(threshold float64) Option {
	return func(r *Resolver) {
		r.fuzzyThreshold = threshold
	}
}

// WithVocabulary merges extra colloquial-term mappings over the built-in
// bilingual table. Keys and values are lowercased.
func WithVocabulary(vocab map[string]string) Option {
	return func(r *Resolver) {
		for k, v := range vocab {
			r.vocab[strings.ToLower(k)] = strings.ToLower(v)
		}
	}
}

// Resolver runs the matching cascade. Construct with [New].
type Resolver struct {
	vocab          map[string]string
	confusions     map[string]string
	fuzzyThreshold float64
	strategies     []Strategy
}

// New returns a [Resolver] with the built-in vocabulary and confusion
// tables and the default thresholds.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		vocab:          make(map[string]string, len(defaultVocabulary)),
		confusions:     defaultConfusions,
		fuzzyThreshold: defaultFuzzyThreshold,
	}
	for k, v := range defaultVocabulary {
		r.vocab[k] = v
	}
	for _, o := range opts {
		o(r)
	}
	r.strategies = []Strategy{
		{Name: "vocabulary", Match: r.matchVocabulary},
		{Name: "exact", Match: matchExact},
		{Name: "prefix", Match: matchPrefix},
		{Name: "word-overlap", Match: matchWordOverlap},
		{Name: "fuzzy", Match: r.matchFuzzy},
	}
	return r
}

// Match is the outcome of one resolution attempt.
type Match struct {
	Product catalog.Product

	// Stage names the cascade stage that produced the match, with a
	// "phonetic+" prefix when the confusion pass re-ran the cascade.
	Stage string
}

// Resolve maps spoken onto a catalog product. The boolean is false when no
// stage matched; the caller records an unmatched command and continues with
// the rest of the batch.
func (r *Resolver) Resolve(spoken string, products []catalog.Product) (Match, bool) {
	spoken = strings.ToLower(strings.TrimSpace(spoken))
	if spoken == "" || len(products) == 0 {
		return Match{}, false
	}

	if m, ok := r.runCascade(spoken, products); ok {
		return m, true
	}

	// Phonetic fallback: substitute known mis-transcriptions and re-run
	// the cascade exactly once.
	substituted, changed := r.substituteConfusions(spoken)
	if !changed {
		return Match{}, false
	}
	if m, ok := r.runCascade(substituted, products); ok {
		m.Stage = "phonetic+" + m.Stage
		return m, true
	}
	return Match{}, false
}

// runCascade tries every strategy in order; the first match wins.
func (r *Resolver) runCascade(spoken string, products []catalog.Product) (Match, bool) {
	for _, s := range r.strategies {
		if p, ok := s.Match(spoken, products); ok {
			return Match{Product: p, Stage: s.Name}, true
		}
	}
	return Match{}, false
}

// matchVocabulary substitutes colloquial terms word-by-word and accepts the
// result only on exact catalog-name equality.
func (r *Resolver) matchVocabulary(spoken string, products []catalog.Product) (catalog.Product, bool) {
	words := strings.Fields(spoken)
	changed := false
	for i, w := range words {
		if mapped, ok := r.vocab[w]; ok {
			words[i] = mapped
			changed = true
		}
	}
	if !changed {
		return catalog.Product{}, false
	}
	return matchExact(strings.Join(words, " "), products)
}

// matchExact is case-insensitive name equality.
func matchExact(spoken string, products []catalog.Product) (catalog.Product, bool) {
	for _, p := range products {
		if strings.EqualFold(spoken, p.Name) {
			return p, true
		}
	}
	return catalog.Product{}, false
}

// matchPrefix accepts a product whose full name starts the spoken text at a
// word boundary. The longest such name wins.
func matchPrefix(spoken string, products []catalog.Product) (catalog.Product, bool) {
	var best catalog.Product
	bestLen := -1
	for _, p := range products {
		name := strings.ToLower(p.Name)
		if !strings.HasPrefix(spoken, name) {
			continue
		}
		if len(spoken) > len(name) && spoken[len(name)] != ' ' {
			continue
		}
		if len(name) > bestLen {
			best = p
			bestLen = len(name)
		}
	}
	return best, bestLen >= 0
}

// matchWordOverlap ranks products by how many spoken words (longer than two
// characters) appear as a substring of the name or contain it. Ties keep
// catalog order.
func matchWordOverlap(spoken string, products []catalog.Product) (catalog.Product, bool) {
	words := make([]string, 0, 4)
	for _, w := range strings.Fields(spoken) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	if len(words) < 2 {
		return catalog.Product{}, false
	}

	var best catalog.Product
	bestCount := 0
	for _, p := range products {
		name := strings.ToLower(p.Name)
		count := 0
		for _, w := range words {
			if strings.Contains(name, w) || strings.Contains(w, name) {
				count++
			}
		}
		if count > bestCount {
			best = p
			bestCount = count
		}
	}
	return best, bestCount > 0
}

// matchFuzzy scores every product by normalized edit distance with a
// containment bonus and a length-mismatch penalty, accepting the best score
// above the threshold.
func (r *Resolver) matchFuzzy(spoken string, products []catalog.Product) (catalog.Product, bool) {
	var best catalog.Product
	bestScore := r.fuzzyThreshold
	found := false

	for _, p := range products {
		name := strings.ToLower(p.Name)
		score := fuzzyScore(spoken, name)
		if score > bestScore {
			best = p
			bestScore = score
			found = true
		}
	}
	return best, found
}

// fuzzyScore computes (maxLen-editDistance)/maxLen with the containment and
// length adjustments.
func fuzzyScore(spoken, name string) float64 {
	maxLen := len(spoken)
	if len(name) > maxLen {
		maxLen = len(name)
	}
	if maxLen == 0 {
		return 0
	}

	dist := matchr.Levenshtein(spoken, name)
	score := float64(maxLen-dist) / float64(maxLen)

	if len(spoken) > 3 && strings.Contains(name, spoken) {
		score += containmentBonus
	}
	diff := len(name) - len(spoken)
	if diff < 0 {
		diff = -diff
	}
	if diff > lengthPenaltyGap {
		score -= lengthPenalty
	}
	return score
}
