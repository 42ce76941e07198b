package normalize

import "strings"

// venueTypeWords is the closed set of trailing venue-type words stripped from
// venue names. "Leith Depot Bar" and "Leith Depot" must produce the same key.
var venueTypeWords = map[string]struct{}{
	"bar":       {},
	"pub":       {},
	"club":      {},
	"venue":     {},
	"hall":      {},
	"hotel":     {},
	"theatre":   {},
	"theater":   {},
	"lounge":    {},
	"room":      {},
	"warehouse": {},
}

// Namer computes canonical comparison keys for venue names. The city stoplist
// is configuration, not a constant: deployments outside Scotland carry their
// own list.
type Namer struct {
	cities       map[string]struct{}
	maxCityWords int
}

// NewNamer builds a Namer with the given trailing-city stoplist. Each entry
// is one unit: "Fort William" only strips the whole trailing phrase, never a
// bare trailing "william". Entry words go through the same
// lowercase+singularize transform as name words, so a stoplist entry like
// "Leeds" still matches after the crude singularizer has turned the final
// word into "leed".
func NewNamer(cityStoplist []string) *Namer {
	cities := make(map[string]struct{}, len(cityStoplist))
	maxWords := 0
	for _, city := range cityStoplist {
		words := strings.Fields(strings.ToLower(strings.TrimSpace(city)))
		for i, word := range words {
			words[i] = singularize(word)
		}
		if len(words) == 0 {
			continue
		}
		cities[strings.Join(words, " ")] = struct{}{}
		if len(words) > maxWords {
			maxWords = len(words)
		}
	}
	return &Namer{cities: cities, maxCityWords: maxWords}
}

// Name converts a raw venue name into its canonical comparison key. It is
// total: any input produces a key, possibly empty. The steps run in a fixed
// order; both sides of every comparison go through the same lossy transform,
// so known false positives (over-stripped trailing "s") are kept as-is rather
// than corrected.
func (n *Namer) Name(raw string) string {
	s := strings.ToLower(raw)

	s = stripLeadingPhrase(s, "upstairs at")
	s = stripLeadingPhrase(s, "upstairs")
	s = stripLeadingPhrase(s, "the")

	s = keepAlnumAndSpace(s)

	words := make([]string, 0, 8)
	for _, word := range strings.Fields(s) {
		// "n" is colloquial "and": "Rock N Roll" == "Rock and Roll".
		if word == "and" || word == "n" {
			continue
		}
		words = append(words, word)
	}

	// Longest trailing run of venue-type words, not just the last word.
	for len(words) > 0 {
		if _, ok := venueTypeWords[words[len(words)-1]]; !ok {
			break
		}
		words = words[:len(words)-1]
	}

	for i, word := range words {
		words[i] = singularize(word)
	}

	// Longest trailing stoplist phrase wins, so "fort william" is preferred
	// over a hypothetical single-word "william" entry.
	for k := n.maxCityWords; k >= 1; k-- {
		if k > len(words) {
			continue
		}
		if _, ok := n.cities[strings.Join(words[len(words)-k:], " ")]; ok {
			words = words[:len(words)-k]
			break
		}
	}

	return strings.Join(words, " ")
}

// stripLeadingPhrase removes phrase from the start of s when it is followed by
// a word boundary. Runs once; nesting beyond one layer of each prefix keeps
// the documented order rather than iterating to a fixed point.
func stripLeadingPhrase(s, phrase string) string {
	s = strings.TrimSpace(s)
	if s == phrase {
		return ""
	}
	if strings.HasPrefix(s, phrase+" ") {
		return strings.TrimSpace(s[len(phrase)+1:])
	}
	return s
}

func keepAlnumAndSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// singularize strips one trailing "s". Words ending in "ss" are left alone;
// without that guard a normalized key containing "glass" would not survive
// re-normalization unchanged.
func singularize(word string) string {
	if len(word) > 1 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") {
		return word[:len(word)-1]
	}
	return word
}
