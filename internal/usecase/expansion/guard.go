package expansion

import (
	"strings"
	"unicode"
)

// defaultBlocklist names sensitive subject areas an expansion must never
// introduce on its own: named religions and active geopolitical conflicts.
// Deployments extend it via config.
var defaultBlocklist = []string{
	"islam", "muslim", "christianity", "christian", "judaism", "jewish",
	"hinduism", "hindu", "buddhism", "buddhist", "catholic", "protestant",
	"sikh", "atheist",
	"israel", "palestine", "gaza", "ukraine", "russia", "taiwan", "kashmir",
	"war", "conflict", "terrorism", "genocide",
}

// driftGuard rejects expansion candidates that introduce a blocklisted term
// absent from the original query.
type driftGuard struct {
	terms []string
}

func newDriftGuard(extra []string) *driftGuard {
	terms := make([]string, 0, len(defaultBlocklist)+len(extra))
	terms = append(terms, defaultBlocklist...)
	for _, t := range extra {
		if t = normalizeText(t); t != "" {
			terms = append(terms, t)
		}
	}
	return &driftGuard{terms: terms}
}

// allows reports whether the candidate stays on the original's topic: any
// blocklisted term it contains must already be present in the original.
// Multi-word terms from config match as whole phrases.
func (g *driftGuard) allows(original, candidate string) bool {
	origNorm := normalizeText(original)
	candNorm := normalizeText(candidate)
	for _, term := range g.terms {
		if containsTerm(candNorm, term) && !containsTerm(origNorm, term) {
			return false
		}
	}
	return true
}

// normalizeText lowercases s and collapses runs of non-alphanumeric runes to
// single spaces, so punctuation never hides or splits a term.
func normalizeText(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, " ")
}

// containsTerm matches term against normalized text on word boundaries.
func containsTerm(norm, term string) bool {
	return strings.Contains(" "+norm+" ", " "+term+" ")
}
