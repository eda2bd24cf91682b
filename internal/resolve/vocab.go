package resolve

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// defaultVocabulary maps colloquial Hindi grocery terms to the English names
// shops usually keep their catalogs in. Shop-specific terms are layered on
// top via [WithVocabulary].
var defaultVocabulary = map[string]string{
	"chini":   "sugar",
	"cheeni":  "sugar",
	"shakkar": "sugar",
	"namak":   "salt",
	"doodh":   "milk",
	"dudh":    "milk",
	"dahi":    "curd",
	"atta":    "flour",
	"aata":    "flour",
	"maida":   "refined flour",
	"chawal":  "rice",
	"chaval":  "rice",
	"dal":     "lentils",
	"daal":    "lentils",
	"tel":     "oil",
	"ghee":    "clarified butter",
	"besan":   "gram flour",
	"haldi":   "turmeric",
	"mirchi":  "chilli",
	"mirch":   "chilli",
	"jeera":   "cumin",
	"dhania":  "coriander",
	"anda":    "egg",
	"ande":    "eggs",
	"sabun":   "soap",
	"pyaz":    "onion",
	"pyaaz":   "onion",
	"aloo":    "potato",
	"alu":     "potato",
	"tamatar": "tomato",
	"adrak":   "ginger",
	"lehsun":  "garlic",
	"nimbu":   "lemon",
	"kela":    "banana",
	"seb":     "apple",
	"paneer":  "cottage cheese",
	"makhan":  "butter",
	"biskut":  "biscuit",
	"chai":    "tea",
	"patti":   "tea",
}

// defaultConfusions maps speech-recognition mis-hearings to the word the
// speaker most likely said. These are transcription artifacts, not synonyms,
// so they live outside the vocabulary table.
var defaultConfusions = map[string]string{
	"sugar":  "sugar",
	"shuger": "sugar",
	"suger":  "sugar",
	"shooga": "sugar",
	"saalt":  "salt",
	"solt":   "salt",
	"reis":   "rice",
	"rise":   "rice",
	"oyl":    "oil",
	"oel":    "oil",
	"melk":   "milk",
	"bread":  "bread",
	"bred":   "bread",
	"brad":   "bread",
	"teaa":   "tea",
	"tee":    "tea",
	"cheenee": "chini",
	"chinni":  "chini",
	"namach":  "namak",
	"namaak":  "namak",
	"dhoodh":  "doodh",
	"attaa":   "atta",
}

// substituteConfusions rewrites spoken word-by-word through the confusion
// table. Words with no direct table entry are compared phonetically: when a
// word shares a Double Metaphone code with a confusion key and scores at
// least 0.85 Jaro-Winkler against it, the key's correction is taken.
//
// changed is false when no word was rewritten, in which case re-running the
// cascade would be a no-op and the caller skips it.
func (r *Resolver) substituteConfusions(spoken string) (substituted string, changed bool) {
	words := strings.Fields(spoken)
	for i, w := range words {
		if corrected, ok := r.confusions[w]; ok {
			if corrected != w {
				words[i] = corrected
				changed = true
			}
			continue
		}
		if corrected, ok := phoneticCorrection(w, r.confusions); ok {
			words[i] = corrected
			changed = true
		}
	}
	if !changed {
		return spoken, false
	}
	return strings.Join(words, " "), true
}

// phoneticConfusionThreshold is the minimum Jaro-Winkler score a phonetic
// code collision must also reach before a confusion correction is applied.
const phoneticConfusionThreshold = 0.85

// phoneticCorrection finds the confusion-table key that sounds like word,
// ranked by Jaro-Winkler similarity on the raw strings. Keys are tried in
// sorted order and only a strictly better score replaces the best, so a
// scoring tie always resolves to the lexicographically first key.
func phoneticCorrection(word string, confusions map[string]string) (string, bool) {
	wp, ws := matchr.DoubleMetaphone(word)
	if wp == "" && ws == "" {
		return "", false
	}

	keys := make([]string, 0, len(confusions))
	for k := range confusions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bestScore := phoneticConfusionThreshold
	var best string
	found := false

	for _, key := range keys {
		corrected := confusions[key]
		if corrected == word {
			continue
		}
		kp, ks := matchr.DoubleMetaphone(key)
		if !codesCollide(wp, ws, kp, ks) {
			continue
		}
		score := matchr.JaroWinkler(word, key, false)
		if score < bestScore || (found && score == bestScore) {
			continue
		}
		best = corrected
		bestScore = score
		found = true
	}
	if !found || best == word {
		return "", false
	}
	return best, true
}

// codesCollide reports whether the two Double Metaphone code pairs share a
// non-empty code.
func codesCollide(ap, as, bp, bs string) bool {
	for _, a := range [2]string{ap, as} {
		if a == "" {
			continue
		}
		if a == bp || a == bs {
			return true
		}
	}
	return false
}
