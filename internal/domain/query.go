package domain

import (
	"fmt"
	"strings"
)

// Query limits and defaults.
const (
	DefaultLimit     = 5
	MaxLimit         = 25
	DefaultThreshold = 0.5
)

// SubjectHints carries optional situational context used to bias the query
// text and to pin expansions to a named subject.
type SubjectHints struct {
	Name   string
	Course string
	Campus string
}

// Query is the immutable retrieval input. Built once via NewQuery and never
// mutated afterwards; all access goes through read-only methods.
type Query struct {
	text       string
	docTypes   []string
	categories []string
	threshold  float64
	limit      int
	hints      SubjectHints
	sessionID  string
}

// NewQuery validates and builds a Query. Empty text is allowed (it degrades
// to an empty result downstream), but limit and threshold are normalized here
// so every later stage can trust them.
func NewQuery(
	text string, docTypes, categories []string,
	threshold float64, limit int,
	hints SubjectHints, sessionID string,
) (Query, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		return Query{}, fmt.Errorf("limit %d exceeds maximum %d", limit, MaxLimit)
	}
	if threshold < 0 || threshold > 1 {
		return Query{}, fmt.Errorf("threshold must be in [0,1], got %v", threshold)
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	return Query{
		text:       strings.TrimSpace(text),
		docTypes:   append([]string(nil), docTypes...),
		categories: append([]string(nil), categories...),
		threshold:  threshold,
		limit:      limit,
		hints:      hints,
		sessionID:  sessionID,
	}, nil
}

// Text returns the raw query text (trimmed).
func (q Query) Text() string { return q.text }

// DocTypes returns the optional document-type filters.
func (q Query) DocTypes() []string { return append([]string(nil), q.docTypes...) }

// Categories returns the optional category filters.
func (q Query) Categories() []string { return append([]string(nil), q.categories...) }

// Threshold is the caller's similarity floor for strong evidence.
func (q Query) Threshold() float64 { return q.threshold }

// Limit is the requested result count.
func (q Query) Limit() int { return q.limit }

// Hints returns the situational subject hints.
func (q Query) Hints() SubjectHints { return q.hints }

// SessionID scopes expansion caching to a conversation.
func (q Query) SessionID() string { return q.sessionID }

// BiasedText appends course/campus hints to the query text so the store sees
// the subject's situation without the caller rewriting the query.
func (q Query) BiasedText() string {
	parts := []string{q.text}
	if q.hints.Course != "" {
		parts = append(parts, q.hints.Course)
	}
	if q.hints.Campus != "" {
		parts = append(parts, q.hints.Campus)
	}
	return strings.Join(parts, " ")
}
