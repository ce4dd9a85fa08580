package knowledge

import (
	"strings"
	"unicode"
)

// stopWords are dropped from keyword queries. Small and English-only; the
// knowledge base is English.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "can": {}, "do": {}, "does": {}, "for": {},
	"from": {}, "get": {}, "has": {}, "have": {}, "how": {}, "i": {},
	"if": {}, "in": {}, "is": {}, "it": {}, "me": {}, "my": {}, "of": {},
	"on": {}, "or": {}, "our": {}, "so": {}, "that": {}, "the": {},
	"their": {}, "there": {}, "this": {}, "to": {}, "was": {}, "we": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "why": {},
	"will": {}, "with": {}, "you": {}, "your": {},
}

// typoCorrections maps frequent misspellings seen in enquiry queries to
// their canonical forms.
var typoCorrections = map[string]string{
	"acomodation":  "accommodation",
	"accomodation": "accommodation",
	"admisions":    "admissions",
	"admissons":    "admissions",
	"enrolement":   "enrolment",
	"entrence":     "entrance",
	"scholorship":  "scholarship",
	"tution":       "tuition",
}

// ExtractKeywords lowercases the query, splits it on non-alphanumerics,
// drops stop-words and single characters, and applies the typo table.
// Order is preserved; duplicates are removed.
func ExtractKeywords(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	keywords := make([]string, 0, len(fields))
	for _, w := range fields {
		if len(w) < 2 {
			continue
		}
		if _, skip := stopWords[w]; skip {
			continue
		}
		if fixed, ok := typoCorrections[w]; ok {
			w = fixed
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}
	return keywords
}

// normalizeText lowercases and collapses whitespace for phrase comparison
// and cache keying.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
