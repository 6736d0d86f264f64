// Package catalog resolves free-text names against the product catalog.
package catalog

import (
	"errors"
	"sort"
	"strings"

	"github.com/capitalize-ai/quote-assistant/internal/model"
)

// ErrNoMatch is returned when no catalog entry matches the input.
var ErrNoMatch = errors.New("no catalog match")

// MatchLevel records which comparison produced a match.
type MatchLevel int

const (
	NoMatch MatchLevel = iota
	MatchExact
	MatchNameContainsInput
	MatchInputContainsName
	MatchTokenSet
	MatchTokenPlurality
	MatchDescription
	MatchExternalID
)

func (l MatchLevel) String() string {
	switch l {
	case MatchExact:
		return "exact"
	case MatchNameContainsInput:
		return "name_contains_input"
	case MatchInputContainsName:
		return "input_contains_name"
	case MatchTokenSet:
		return "token_set"
	case MatchTokenPlurality:
		return "token_plurality"
	case MatchDescription:
		return "description"
	case MatchExternalID:
		return "external_id"
	default:
		return "none"
	}
}

// Match is a successful lookup.
type Match struct {
	Entry     model.CatalogEntry
	Level     MatchLevel
	Corrected bool
}

// query is the input prepared once for every comparison.
type query struct {
	compact string
	tokens  []string
	numeric bool
}

func newQuery(s string) query {
	c := compact(s)
	q := query{compact: c, numeric: isDigits(c)}
	// Bare numbers never select by token: "3" must not pick the entry
	// whose name happens to contain a 3.
	toks := contentTokens(s)
	for _, t := range toks {
		if !isDigits(t) {
			q.tokens = toks
			break
		}
	}
	return q
}

type matcher func(q query, name string) bool

var levels = []struct {
	level MatchLevel
	match matcher
}{
	{MatchExact, func(q query, name string) bool {
		return compact(name) == q.compact
	}},
	{MatchNameContainsInput, func(q query, name string) bool {
		return len(q.compact) >= minContainLen && strings.Contains(compact(name), q.compact)
	}},
	{MatchInputContainsName, func(q query, name string) bool {
		n := compact(name)
		return len(n) >= minContainLen && strings.Contains(q.compact, n)
	}},
	{MatchTokenSet, func(q query, name string) bool {
		return tokenSubset(q.tokens, contentTokens(name))
	}},
}

// Lookup resolves name to a single entry from entries, which must be in
// catalog order. Each strict level is tried on the original input and then
// on its spelling corrected form before moving to the next level; the loose
// fallbacks run only once both forms missed every strict level. Lookup never
// reports ambiguity: within a level the first entry in catalog order wins.
func Lookup(name string, entries []model.CatalogEntry) (Match, bool) {
	if strings.TrimSpace(name) == "" || len(entries) == 0 {
		return Match{}, false
	}

	queries := []query{newQuery(name)}
	if corrected := correctSpelling(name); corrected != fold(name) {
		queries = append(queries, newQuery(corrected))
	}

	for _, lvl := range levels {
		for i, q := range queries {
			if e, ok := strict(q, lvl.match, entries); ok {
				return Match{Entry: e, Level: lvl.level, Corrected: i > 0}, true
			}
		}
	}

	for i, q := range queries {
		if m, ok := loose(q, entries); ok {
			m.Corrected = i > 0
			return m, true
		}
	}
	return Match{}, false
}

func strict(q query, match matcher, entries []model.CatalogEntry) (model.CatalogEntry, bool) {
	if q.compact == "" {
		return model.CatalogEntry{}, false
	}
	for _, e := range entries {
		for _, name := range e.Names() {
			if match(q, name) {
				return e, true
			}
		}
	}
	return model.CatalogEntry{}, false
}

// loose runs the fallbacks that follow the strict levels: token plurality,
// description and external identifier.
func loose(q query, entries []model.CatalogEntry) (Match, bool) {
	if q.compact == "" {
		return Match{}, false
	}

	if e, ok := plurality(q, entries); ok {
		return Match{Entry: e, Level: MatchTokenPlurality}, true
	}

	if len(q.compact) >= minContainLen {
		for _, e := range entries {
			if e.Description != "" && strings.Contains(compact(e.Description), q.compact) {
				return Match{Entry: e, Level: MatchDescription}, true
			}
		}
	}

	if q.numeric {
		for _, e := range entries {
			if e.ExternalID != "" && compact(e.ExternalID) == q.compact {
				return Match{Entry: e, Level: MatchExternalID}, true
			}
		}
	}

	return Match{}, false
}

// tokenSubset reports whether every token of the shorter set is in the longer.
func tokenSubset(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	set := make(map[string]struct{}, len(long))
	for _, t := range long {
		set[t] = struct{}{}
	}
	for _, t := range short {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// plurality picks the entry sharing the most input tokens, provided it shares
// at least half of them, rounded up.
func plurality(q query, entries []model.CatalogEntry) (model.CatalogEntry, bool) {
	if len(q.tokens) == 0 {
		return model.CatalogEntry{}, false
	}
	need := (len(q.tokens) + 1) / 2

	var best model.CatalogEntry
	bestCount := 0
	for _, e := range entries {
		for _, name := range e.Names() {
			set := make(map[string]struct{})
			for _, t := range contentTokens(name) {
				set[t] = struct{}{}
			}
			count := 0
			for _, t := range q.tokens {
				if _, ok := set[t]; ok {
					count++
				}
			}
			if count > bestCount {
				best, bestCount = e, count
			}
		}
	}
	if bestCount == 0 || bestCount < need {
		return model.CatalogEntry{}, false
	}
	return best, true
}

// SortEntries orders entries by sort order, then case-folded name.
func SortEntries(entries []model.CatalogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].SortOrder != entries[j].SortOrder {
			return entries[i].SortOrder < entries[j].SortOrder
		}
		return fold(entries[i].Name) < fold(entries[j].Name)
	})
}
