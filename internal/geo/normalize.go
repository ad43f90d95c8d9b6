package geo

import (
	"strings"
	"unicode"
)

// normalizeAddress lowercases the address and collapses punctuation and
// whitespace runs to single spaces, so "100 W. Randolph St," and
// "100 w randolph st" share a cache entry.
func normalizeAddress(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '#' {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteByte(' ')
			prevSpace = true
		}
	}

	return strings.TrimSpace(b.String())
}
