package retrieval

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/domain"
)

var defaultReducer = reducerConfig{lambda: 0.7, overlapThreshold: 0.6, categoryPenalty: 0.15}

func cand(id, title, content, category string, score float64) domain.Candidate {
	return domain.Candidate{
		ID: id, Title: title, Content: content,
		Category: category, SimilarityScore: score,
	}
}

func ids(results []domain.Candidate) []string {
	out := make([]string, len(results))
	for i, c := range results {
		out[i] = c.ID
	}
	return out
}

func contains(results []domain.Candidate, id string) bool {
	for _, c := range results {
		if c.ID == id {
			return true
		}
	}
	return false
}

func TestReduce_ExactDuplicatesCollapse(t *testing.T) {
	pool := []domain.Candidate{
		cand("low", "Tuition Fees", "Fees are due at enrolment each term.", "fees", 0.6),
		cand("high", "Tuition Fees!", "Fees are due at enrolment each term.", "fees", 0.9),
	}

	got := reduce(pool, 5, defaultReducer)
	if len(got) != 1 {
		t.Fatalf("expected duplicates to collapse, got %v", ids(got))
	}
	if got[0].ID != "high" {
		t.Errorf("higher-scored copy must survive, got %q", got[0].ID)
	}
}

func TestReduce_NearDuplicateContentDropped(t *testing.T) {
	base := "The accommodation office allocates rooms in order of application date and students should apply before June."
	pool := []domain.Candidate{
		cand("a", "Housing Guide", base, "housing", 0.9),
		cand("b", "Room Allocation", base+" Late applicants join a waiting list.", "housing", 0.7),
		cand("c", "Exam Timetable", "Examinations run for three weeks starting in May and rooms are posted a week ahead.", "exams", 0.5),
	}

	got := reduce(pool, 5, defaultReducer)
	if contains(got, "b") {
		t.Errorf("overlapping passage must be dropped, got %v", ids(got))
	}
	if !contains(got, "a") || !contains(got, "c") {
		t.Errorf("distinct passages must survive, got %v", ids(got))
	}
}

func TestReduce_SizeBound(t *testing.T) {
	var pool []domain.Candidate
	for i := 0; i < 10; i++ {
		pool = append(pool, cand(
			fmt.Sprintf("doc-%d", i),
			fmt.Sprintf("Topic %d", i),
			fmt.Sprintf("Completely distinct body number %d about subject matter %d.", i, i*7),
			"general", 0.9-float64(i)*0.05,
		))
	}

	if got := reduce(pool, 3, defaultReducer); len(got) != 3 {
		t.Errorf("expected exactly 3 results, got %d", len(got))
	}
	if got := reduce(pool[:2], 5, defaultReducer); len(got) != 2 {
		t.Errorf("k beyond pool size must return the pool, got %d", len(got))
	}
	if got := reduce(nil, 5, defaultReducer); len(got) != 0 {
		t.Errorf("empty pool must reduce to empty, got %d", len(got))
	}
}

func TestReduce_TopScoreAlwaysSelected(t *testing.T) {
	pool := []domain.Candidate{
		cand("mid", "Bursaries", "Bursary applications open in September for all new students.", "fees", 0.7),
		cand("top", "Scholarships", "Scholarship awards are decided by the faculty panel in August.", "fees", 0.95),
		cand("low", "Parking", "Permit applications are handled by campus services.", "campus", 0.4),
	}

	got := reduce(pool, 2, defaultReducer)
	if len(got) == 0 || got[0].ID != "top" {
		t.Fatalf("highest score must seed the selection, got %v", ids(got))
	}
}

func TestReduce_CategoryPenaltyPrefersSpread(t *testing.T) {
	pool := []domain.Candidate{
		cand("f1", "Fee Schedule", "Term one fees are invoiced in October with payment due in thirty days.", "fees", 0.90),
		cand("f2", "Fee Payment Plans", "Instalment plans split the annual balance across three equal payments.", "fees", 0.89),
		cand("f3", "Fee Refunds", "Withdrawal before week four qualifies for a partial refund of charges.", "fees", 0.88),
		cand("f4", "Fee Waivers", "Hardship waivers require supporting evidence from a qualified adviser.", "fees", 0.87),
		cand("h1", "Housing Costs", "Hall rents include utilities and a basic contents insurance policy.", "housing", 0.78),
	}

	got := reduce(pool, 4, defaultReducer)
	if !contains(got, "h1") {
		t.Errorf("category over its slack must yield to a different category, got %v", ids(got))
	}
	if contains(got, "f4") {
		t.Errorf("fourth same-category candidate should pay the penalty and lose, got %v", ids(got))
	}
}

func TestSimilarityRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "abcdef", "abcdef", 1},
		{"disjoint", "aaaa", "bbbb", 0},
		{"both empty", "", "", 1},
		{"one empty", "abc", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := similarityRatio(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("similarityRatio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilarityRatio_PartialOverlap(t *testing.T) {
	got := similarityRatio("the fee deadline is june", "the fee deadline is july")
	if got <= 0.6 {
		t.Errorf("near-identical sentences must score above the drop threshold, got %v", got)
	}
}

func TestOverlapPrefix_Bounded(t *testing.T) {
	long := strings.Repeat("a", 500)
	if got := len([]rune(overlapPrefix(long))); got != overlapPrefixLen {
		t.Errorf("expected prefix of %d runes, got %d", overlapPrefixLen, got)
	}
}

func TestNormalizeForMatch(t *testing.T) {
	got := normalizeForMatch("  Tuition   Fees, 2026! ")
	if got != "tuition fees 2026" {
		t.Errorf("normalizeForMatch() = %q", got)
	}
}
