package retrieval

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/domain"
	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/repository/knowledge"
)

// minStrongResults is the floor on strong evidence below which a single
// expansion round runs.
const minStrongResults = 3

// Config holds the ranking tuning knobs.
type Config struct {
	Lambda           float64
	OverlapThreshold float64
	CategoryPenalty  float64
}

// Service orchestrates a retrieval: embed, search, optionally expand when the
// evidence is weak, then deduplicate, diversify and score confidence. Every
// dependency failure degrades the result instead of failing the call, so
// Retrieve never returns an error to the transport.
type Service struct {
	repo     searchRepo
	embedder domain.Embedder
	expander expander
	cfg      Config
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(
	repo searchRepo, embedder domain.Embedder, exp expander, cfg Config,
	requests *prometheus.CounterVec, duration *prometheus.HistogramVec,
	logger *zap.Logger,
) *Service {
	if cfg.Lambda <= 0 || cfg.Lambda > 1 {
		cfg.Lambda = 0.7
	}
	if cfg.OverlapThreshold <= 0 || cfg.OverlapThreshold > 1 {
		cfg.OverlapThreshold = 0.6
	}
	if cfg.CategoryPenalty <= 0 {
		cfg.CategoryPenalty = 0.15
	}
	return &Service{
		repo:     repo,
		embedder: embedder,
		expander: exp,
		cfg:      cfg,
		requests: requests,
		duration: duration,
		logger:   logger,
	}
}

// Retrieve answers a query with at most Limit diverse, deduplicated passages
// and a confidence estimate. A weak first pass triggers exactly one expansion
// round; strong evidence triggers none.
func (s *Service) Retrieve(ctx context.Context, q domain.Query) domain.Retrieval {
	start := time.Now()

	if q.Text() == "" {
		s.observe(start, false, 0)
		return domain.Retrieval{Results: []domain.Candidate{}, Confidence: confidenceNeutral}
	}

	candidates, cacheHit := s.search(ctx, q, q.BiasedText())

	expansionUsed := false
	if s.needsExpansion(candidates, q) && s.expander != nil {
		extras := s.expander.Expand(ctx, q)
		// The first entry repeats the original query, already searched.
		for _, alt := range extras[1:] {
			expansionUsed = true
			more, _ := s.search(ctx, q, alt)
			candidates = append(candidates, more...)
		}
	}

	results := reduce(candidates, q.Limit(), reducerConfig{
		lambda:           s.cfg.Lambda,
		overlapThreshold: s.cfg.OverlapThreshold,
		categoryPenalty:  s.cfg.CategoryPenalty,
	})
	if results == nil {
		results = []domain.Candidate{}
	}

	s.observe(start, cacheHit, len(results))
	return domain.Retrieval{
		Results:       results,
		Confidence:    estimateConfidence(results),
		CacheHit:      cacheHit,
		ExpansionUsed: expansionUsed,
	}
}

// search embeds the text and queries the store. Both stages degrade: the
// embedder falls back internally, and a store failure yields an empty list.
func (s *Service) search(ctx context.Context, q domain.Query, text string) ([]domain.Candidate, bool) {
	emb, err := s.embedder.Embed(ctx, text)
	if err != nil {
		// The fallback decorator makes this unreachable in the wired service;
		// a bare embedder degrades to the keyword path.
		s.logger.Warn("Embedding failed, continuing with keyword search only", zap.Error(err))
		emb = domain.EmbeddingResult{}
	}

	candidates, cacheHit, err := s.repo.Search(ctx, knowledge.Params{
		QueryText:  text,
		Embedding:  emb.Embedding,
		DocTypes:   q.DocTypes(),
		Categories: q.Categories(),
		Limit:      q.Limit(),
		Threshold:  q.Threshold(),
	})
	if err != nil {
		s.logger.Warn("Knowledge search failed", zap.Error(err))
		return nil, false
	}
	return candidates, cacheHit
}

// needsExpansion reports whether the first pass found too little strong
// evidence: fewer hits at or above the caller's threshold than the larger of
// minStrongResults and half the requested limit.
func (s *Service) needsExpansion(candidates []domain.Candidate, q domain.Query) bool {
	need := q.Limit() / 2
	if need < minStrongResults {
		need = minStrongResults
	}

	strong := 0
	for _, c := range candidates {
		if c.Score() >= q.Threshold() {
			strong++
		}
	}
	return strong < need
}

func (s *Service) observe(start time.Time, cacheHit bool, resultCount int) {
	outcome := "results"
	if resultCount == 0 {
		outcome = "empty"
	}
	if s.requests != nil {
		s.requests.WithLabelValues(outcome).Inc()
	}

	path := "full"
	if cacheHit {
		path = "cached"
	}
	if s.duration != nil {
		s.duration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}
}
