package normalize

import "strings"

// Text lowercases, turns every non-alphanumeric rune into a space, and
// collapses whitespace. Used for address comparison and for the name
// component of event fingerprints, where the full venue-key transform would
// be too lossy. Punctuation becomes a separator rather than vanishing:
// "13-29 Cowgate" and "13 29 Cowgate" must compare equal, and "1329" must
// not.
func Text(raw string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return ' '
		}
	}, strings.ToLower(raw))
	return strings.Join(strings.Fields(mapped), " ")
}
