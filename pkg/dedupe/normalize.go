// Package dedupe finds duplicate records in a Calibre library and resolves
// them: three independent grouping strategies (exact key, fuzzy title, shared
// identifier), a deterministic keeper score, and a policy-gated deletion
// resolver with an append-only recovery log.
package dedupe

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes a free-text field for comparison: lower-case,
// accents stripped, punctuation removed, whitespace collapsed and trimmed.
// Every group key in this package goes through it, so "The Hobbit!!!" and
// "the   hobbit" produce the same key.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s, _, _ = transform.String(stripAccents, strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}

// normalizeAll normalizes each element and returns them sorted, so author
// order never affects a group key.
func normalizeAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = Normalize(v)
	}
	// insertion sort; author lists are tiny
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
