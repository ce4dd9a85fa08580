package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"

	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/domain"
)

const (
	// fingerprintContentLen bounds the content prefix hashed into the
	// duplicate fingerprint.
	fingerprintContentLen = 200

	// overlapPrefixLen bounds the content prefix compared for near-duplicate
	// overlap. Long passages share boilerplate tails; the opening carries the
	// identity.
	overlapPrefixLen = 180

	// categorySlack is how many candidates of one category may be selected
	// before the diversity penalty starts charging for that category.
	categorySlack = 2
)

// reducerConfig holds the diversity tuning knobs.
type reducerConfig struct {
	lambda           float64
	overlapThreshold float64
	categoryPenalty  float64
}

// reduce shrinks a merged candidate pool to at most k diverse results:
// exact duplicates collapse by fingerprint, near-duplicates drop by content
// overlap, and the survivors are picked greedily by marginal relevance so the
// final list balances score against redundancy.
func reduce(candidates []domain.Candidate, k int, cfg reducerConfig) []domain.Candidate {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score() > candidates[j].Score()
	})

	deduped := dropDuplicates(candidates, cfg.overlapThreshold)
	return selectDiverse(deduped, k, cfg)
}

// dropDuplicates removes candidates that repeat earlier (higher-scored) ones,
// first by exact fingerprint, then by content overlap above the threshold.
func dropDuplicates(candidates []domain.Candidate, overlapThreshold float64) []domain.Candidate {
	seen := make(map[string]bool, len(candidates))
	kept := make([]domain.Candidate, 0, len(candidates))

	for _, c := range candidates {
		fp := fingerprint(c)
		if seen[fp] {
			continue
		}

		overlapping := false
		for _, prev := range kept {
			if similarityRatio(overlapPrefix(c.Content), overlapPrefix(prev.Content)) > overlapThreshold {
				overlapping = true
				break
			}
		}
		if overlapping {
			continue
		}

		seen[fp] = true
		kept = append(kept, c)
	}
	return kept
}

// selectDiverse greedily picks up to k candidates by marginal relevance:
// lambda weighs the candidate's own score against its redundancy with what is
// already selected, and categories past their slack pay an extra penalty.
func selectDiverse(pool []domain.Candidate, k int, cfg reducerConfig) []domain.Candidate {
	if len(pool) <= 1 {
		return pool
	}
	if k > len(pool) {
		k = len(pool)
	}

	selected := make([]domain.Candidate, 0, k)
	catCount := make(map[string]int)
	remaining := append([]domain.Candidate(nil), pool...)

	// Highest score seeds the selection.
	selected = append(selected, remaining[0])
	catCount[remaining[0].Category]++
	remaining = remaining[1:]

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestMMR := mmrScore(remaining[0], selected, catCount, cfg)
		for i := 1; i < len(remaining); i++ {
			if s := mmrScore(remaining[i], selected, catCount, cfg); s > bestMMR {
				bestIdx, bestMMR = i, s
			}
		}

		pick := remaining[bestIdx]
		selected = append(selected, pick)
		catCount[pick.Category]++
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

// mmrScore is the marginal-relevance value of adding c to the selection.
// Redundancy is the closeness of c's score to the nearest selected score,
// plus a charge when c's category is already over its slack.
func mmrScore(c domain.Candidate, selected []domain.Candidate, catCount map[string]int, cfg reducerConfig) float64 {
	var redundancy float64
	for _, s := range selected {
		d := c.Score() - s.Score()
		if d < 0 {
			d = -d
		}
		if r := 1 - d; r > redundancy {
			redundancy = r
		}
	}
	if over := catCount[c.Category] - categorySlack; over > 0 {
		redundancy += cfg.categoryPenalty * float64(over)
	}
	return cfg.lambda*c.Score() - (1-cfg.lambda)*redundancy
}

// fingerprint identifies a passage by its canonical title plus the opening of
// its content, so retitled copies and truncated re-ingests still collapse.
func fingerprint(c domain.Candidate) string {
	content := normalizeForMatch(c.Content)
	if len(content) > fingerprintContentLen {
		content = content[:fingerprintContentLen]
	}
	h := sha256.Sum256([]byte(canonicalTitle(c.Title) + "|" + content))
	return hex.EncodeToString(h[:])
}

func canonicalTitle(title string) string {
	return normalizeForMatch(title)
}

// normalizeForMatch lowercases, strips punctuation and collapses whitespace.
func normalizeForMatch(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

func overlapPrefix(content string) string {
	runes := []rune(normalizeForMatch(content))
	if len(runes) > overlapPrefixLen {
		runes = runes[:overlapPrefixLen]
	}
	return string(runes)
}

// similarityRatio is the classic sequence-matcher ratio: twice the total
// matching characters over the combined length, with matches found by
// recursive longest-common-substring. Deterministic and dependency-free.
func similarityRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

// matchingRunes counts the runes covered by the longest common substring and,
// recursively, the matches on either side of it.
func matchingRunes(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingRunes(a[:ai], b[:bi]) +
		matchingRunes(a[ai+size:], b[bi+size:])
}

func longestCommonSubstring(a, b []rune) (ai, bi, size int) {
	// prev[j] is the match length ending at a[i-1], b[j-1].
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > size {
					size = curr[j]
					ai, bi = i-size, j-size
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return ai, bi, size
}
