package retrieval

import "github.com/Lbridge2222/bridge-fullstack-sub000/internal/domain"

// Confidence step levels. A step function is deliberate: callers branch on
// these values, so they must be stable across releases rather than drift with
// score distributions.
const (
	confidenceHigh    = 0.92
	confidenceGood    = 0.85
	confidenceModest  = 0.75
	confidenceWeak    = 0.6
	confidenceNeutral = 0.5

	topScoreHighFloor = 0.72
	meanGoodFloor     = 0.62
	meanModestFloor   = 0.52
)

// estimateConfidence maps a ranked result list onto a step-function
// confidence. Empty evidence is neutral, not zero: "we found nothing" says
// nothing about whether an answer exists.
func estimateConfidence(results []domain.Candidate) float64 {
	if len(results) == 0 {
		return confidenceNeutral
	}

	if results[0].Score() >= topScoreHighFloor {
		return confidenceHigh
	}

	n := len(results)
	if n > 3 {
		n = 3
	}
	var sum float64
	for _, c := range results[:n] {
		sum += c.Score()
	}
	mean := sum / float64(n)

	switch {
	case mean >= meanGoodFloor:
		return confidenceGood
	case mean >= meanModestFloor:
		return confidenceModest
	default:
		return confidenceWeak
	}
}
