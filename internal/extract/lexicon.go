package extract

import (
	"sort"
	"strconv"
	"strings"
)

// numberWords maps spoken number words — romanized Hindi and English — onto
// their numeric values. Digits are handled separately by the extractor.
var numberWords = map[string]float64{
	// Hindi
	"ek":     1,
	"do":     2,
	"teen":   3,
	"char":   4,
	"chaar":  4,
	"paanch": 5,
	"panch":  5,
	"chhe":   6,
	"che":    6,
	"saat":   7,
	"aath":   8,
	"nau":    9,
	"das":    10,
	"aadha":  0.5,
	"adha":   0.5,
	"paav":   0.25,
	"dedh":   1.5,
	"dhai":   2.5,
	"dhaai":  2.5,

	// English
	"one":     1,
	"two":     2,
	"three":   3,
	"four":    4,
	"five":    5,
	"six":     6,
	"seven":   7,
	"eight":   8,
	"nine":    9,
	"ten":     10,
	"half":    0.5,
	"quarter": 0.25,
}

// currencyWords are the spoken currency markers recognised next to a number.
var currencyWords = []string{
	"rupees", "rupee", "rupaye", "rupaiya", "rupya", "rupe", "rs",
}

// possessiveParticles mark the colloquial "worth of" phrasing: "20 ki namak"
// means salt worth twenty rupees.
var possessiveParticles = []string{"ki", "ka", "ke"}

// stopWords are articles, connectives, and filler words stripped from a
// recovered product name. Both languages mix freely in one utterance.
var stopWords = map[string]struct{}{
	// English
	"a": {}, "an": {}, "the": {}, "of": {}, "for": {}, "some": {},
	"me": {}, "please": {}, "give": {}, "get": {}, "add": {},
	// Hindi
	"ka": {}, "ke": {}, "ki": {}, "ko": {}, "mujhe": {}, "thoda": {},
	"thodi": {}, "wala": {}, "wali": {}, "de": {}, "dena": {}, "dedo": {},
	"chahiye": {}, "hai": {}, "lena": {}, "le": {},
}

// separatorWords split an utterance into enumeration segments. Comma and
// semicolon are handled alongside these in the separator pattern.
var separatorWords = []string{
	"aur", "and", "then", "phir", "fir", "also", "bhi", "plus", "tatha", "evam",
}

// isStopWord reports whether w is in the bilingual stop-word list.
func isStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}

// parseNumber converts a digit string or spoken number word to its value.
func parseNumber(tok string) (float64, bool) {
	if v, err := strconv.ParseFloat(tok, 64); err == nil {
		return v, true
	}
	v, ok := numberWords[tok]
	return v, ok
}

// alternation joins words into a regex alternation, longest first so that
// Go's leftmost-preference matching never picks "g" where "gram" applies.
func alternation(words []string) string {
	sorted := make([]string, len(words))
	copy(sorted, words)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	return strings.Join(sorted, "|")
}

// numberAlternation is the regex alternation for a spoken or written number.
func numberAlternation() string {
	words := make([]string, 0, len(numberWords))
	for w := range numberWords {
		words = append(words, w)
	}
	return `\d+(?:\.\d+)?|` + alternation(words)
}
