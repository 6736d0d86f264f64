package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// minContainLen is the shortest compacted string allowed to take part in a
// containment comparison. Shorter strings ("pe", "5") match almost anything.
const minContainLen = 3

// stopWords are dropped before token-set matching only.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "i": {}, "im": {}, "me": {}, "my": {}, "we": {},
	"need": {}, "want": {}, "would": {}, "like": {}, "get": {}, "please": {},
	"quote": {}, "price": {}, "for": {}, "on": {}, "of": {}, "in": {}, "to": {},
	"with": {}, "and": {}, "some": {}, "looking": {}, "is": {}, "it": {},
}

// fold case-folds s, applies NFKC and collapses runs of whitespace.
func fold(s string) string {
	s = cases.Fold().String(norm.NFKC.String(s))
	return strings.Join(strings.Fields(s), " ")
}

// compact folds s and strips whitespace, hyphens and underscores, so that
// "Stand-up Pouch", "standup pouch" and "stand up pouch" compare equal.
func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '_' || r == '‐' || r == '–' {
			return -1
		}
		return r
	}, fold(s))
}

// tokens splits s on anything that is not a letter or digit.
func tokens(s string) []string {
	return strings.FieldsFunc(fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// contentTokens returns the distinct tokens of s with stop words removed.
func contentTokens(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range tokens(s) {
		if _, stop := stopWords[t]; stop {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
