package knowledge

import (
	"strings"

	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/db"
	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/domain"
)

// candidateFields are the hash fields fetched for every search entry.
var candidateFields = []string{"title", "content", "doc_type", "category"}

// entryToCandidate converts a raw FT.SEARCH row into a domain candidate.
// The document ID is the hash key minus the storage prefix.
func entryToCandidate(entry db.SearchEntry, keyPrefix string, source domain.CandidateSource) domain.Candidate {
	c := domain.Candidate{
		ID:       strings.TrimPrefix(entry.Key, keyPrefix+"doc:"),
		Title:    entry.Fields["title"],
		Content:  entry.Fields["content"],
		DocType:  entry.Fields["doc_type"],
		Category: entry.Fields["category"],
		Source:   source,
	}
	if source == domain.SourceVector {
		c.SimilarityScore = entry.Score
	} else {
		c.RankScore = entry.Score
	}
	return c
}
