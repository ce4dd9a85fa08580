package domain

// CandidateSource marks which search path produced a candidate.
type CandidateSource string

const (
	// SourceVector marks candidates from the vector-similarity path.
	SourceVector CandidateSource = "vector"
	// SourceText marks candidates from the keyword fallback path.
	SourceText CandidateSource = "text"
)

// Candidate is a single retrieved knowledge-base passage. Produced by the
// document store adapter and read-only downstream; serialized as-is into the
// search-result cache.
type Candidate struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Content         string          `json:"content"`
	DocType         string          `json:"doc_type"`
	Category        string          `json:"category"`
	SimilarityScore float64         `json:"similarity_score"`
	RankScore       float64         `json:"rank_score"`
	Source          CandidateSource `json:"source"`
}

// Score returns the candidate's effective relevance in [0,1]: the vector
// similarity when present, otherwise the keyword rank score.
func (c Candidate) Score() float64 {
	if c.SimilarityScore > 0 {
		return c.SimilarityScore
	}
	return c.RankScore
}

// Retrieval is the final outcome of a retrieve call.
type Retrieval struct {
	Results       []Candidate `json:"results"`
	Confidence    float64     `json:"confidence"`
	CacheHit      bool        `json:"cache_hit"`
	ExpansionUsed bool        `json:"expansion_used"`
}
