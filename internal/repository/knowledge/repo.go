package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/db"
	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/domain"
)

const searchCachePrefix = "kb:search_cache:"

// searcher is the consumer interface over the knowledge-base FT index.
type searcher interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// kv is the consumer interface for the full-search cache.
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Params describes one search against the knowledge base.
type Params struct {
	QueryText  string
	Embedding  []float32
	DocTypes   []string
	Categories []string
	Limit      int
	Threshold  float64
}

// Config holds the adapter's tuning knobs.
type Config struct {
	IndexName  string
	KeyPrefix  string
	RelaxDelta float64
	CacheTTL   time.Duration
}

// Repo is the document store adapter: vector-similarity search with a
// keyword fallback, behind a short-TTL full-search cache.
type Repo struct {
	store        searcher
	cache        kv
	cfg          Config
	cacheTotal   *prometheus.CounterVec
	textFallback prometheus.Counter
	logger       *zap.Logger
}

// New creates a knowledge repository.
func New(
	store searcher, cache kv, cfg Config,
	cacheTotal *prometheus.CounterVec, textFallback prometheus.Counter,
	logger *zap.Logger,
) *Repo {
	if cfg.RelaxDelta <= 0 {
		cfg.RelaxDelta = 0.05
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 120 * time.Second
	}
	return &Repo{
		store:        store,
		cache:        cache,
		cfg:          cfg,
		cacheTotal:   cacheTotal,
		textFallback: textFallback,
		logger:       logger,
	}
}

// Search returns candidates for the query and whether they came from the
// full-search cache. The vector path runs first when an embedding is
// supplied; the keyword path is the fallback when the vector path errors,
// had no embedding to work with, or found nothing. Failures never propagate:
// the worst outcome is an empty candidate list.
func (r *Repo) Search(ctx context.Context, p Params) ([]domain.Candidate, bool, error) {
	key := r.cacheKey(p)

	if cached, ok := r.getFromCache(ctx, key); ok {
		r.incCache("hit")
		return cached, true, nil
	}
	r.incCache("miss")

	// Fallback chain: first strategy yielding candidates wins.
	candidates := r.vectorSearch(ctx, p)
	if len(candidates) == 0 {
		candidates = r.textSearch(ctx, p)
	}

	r.putToCache(ctx, key, candidates)
	return candidates, false, nil
}

// vectorSearch runs the KNN query, over-fetching to leave room for the later
// diversity filtering and relaxing the caller's floor by RelaxDelta.
func (r *Repo) vectorSearch(ctx context.Context, p Params) []domain.Candidate {
	if len(p.Embedding) == 0 {
		return nil
	}

	k := p.Limit * 3
	if k < 12 {
		k = 12
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		Vector:       p.Embedding,
		K:            k,
		DocTypes:     p.DocTypes,
		Categories:   p.Categories,
		ReturnFields: candidateFields,
	})
	if err != nil {
		r.logger.Warn("Vector search failed, falling back to keyword search",
			zap.Error(err))
		return nil
	}

	floor := p.Threshold - r.cfg.RelaxDelta
	candidates := make([]domain.Candidate, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		if entry.Score < floor {
			continue
		}
		candidates = append(candidates, entryToCandidate(entry, r.cfg.KeyPrefix, domain.SourceVector))
	}
	return candidates
}

// textSearch runs the keyword fallback: stop-words dropped, common typos
// corrected, keywords OR-matched across title and content, and matches
// rescored by tier (exact phrase in title > in content > partial title >
// partial content).
func (r *Repo) textSearch(ctx context.Context, p Params) []domain.Candidate {
	keywords := ExtractKeywords(p.QueryText)
	if len(keywords) == 0 {
		return nil
	}

	k := p.Limit * 3
	if k < 12 {
		k = 12
	}

	sr, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    r.cfg.IndexName,
		Keywords:     keywords,
		DocTypes:     p.DocTypes,
		Categories:   p.Categories,
		TopK:         k,
		ReturnFields: candidateFields,
	})
	if err != nil {
		r.logger.Warn("Keyword search failed", zap.Error(err))
		return nil
	}

	if r.textFallback != nil {
		r.textFallback.Inc()
	}

	phrase := normalizeText(p.QueryText)
	candidates := make([]domain.Candidate, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		c := entryToCandidate(entry, r.cfg.KeyPrefix, domain.SourceText)
		c.SimilarityScore = 0
		c.RankScore = tierScore(c, phrase, keywords)
		if c.RankScore == 0 {
			continue
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RankScore > candidates[j].RankScore
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// Tiered rank scores for the keyword fallback. Fixed heuristics, see config.
const (
	tierExactTitle     = 1.0
	tierExactContent   = 0.8
	tierPartialTitle   = 0.6
	tierPartialContent = 0.4
)

// tierScore ranks a keyword match: an exact phrase hit in the title beats
// one in the content, which beats any single-keyword hit.
func tierScore(c domain.Candidate, phrase string, keywords []string) float64 {
	title := normalizeText(c.Title)
	content := normalizeText(c.Content)

	if phrase != "" && strings.Contains(title, phrase) {
		return tierExactTitle
	}
	if phrase != "" && strings.Contains(content, phrase) {
		return tierExactContent
	}
	for _, kw := range keywords {
		if strings.Contains(title, kw) {
			return tierPartialTitle
		}
	}
	for _, kw := range keywords {
		if strings.Contains(content, kw) {
			return tierPartialContent
		}
	}
	return 0
}

// --- Cache ---

func (r *Repo) cacheKey(p Params) string {
	docTypes := append([]string(nil), p.DocTypes...)
	categories := append([]string(nil), p.Categories...)
	sort.Strings(docTypes)
	sort.Strings(categories)

	raw := fmt.Sprintf("%s|%s|%s|%d|%.3f",
		normalizeText(p.QueryText),
		strings.Join(docTypes, ","),
		strings.Join(categories, ","),
		p.Limit,
		p.Threshold,
	)
	h := sha256.Sum256([]byte(raw))
	return searchCachePrefix + hex.EncodeToString(h[:])
}

func (r *Repo) getFromCache(ctx context.Context, key string) ([]domain.Candidate, bool) {
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			r.logger.Warn("Failed to read search cache", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var candidates []domain.Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		r.logger.Warn("Failed to decode search cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return candidates, true
}

func (r *Repo) putToCache(ctx context.Context, key string, candidates []domain.Candidate) {
	data, err := json.Marshal(candidates)
	if err != nil {
		return
	}
	if err := r.cache.SetWithTTL(ctx, key, data, r.cfg.CacheTTL); err != nil {
		r.logger.Warn("Failed to write search cache", zap.String("key", key), zap.Error(err))
	}
}

func (r *Repo) incCache(result string) {
	if r.cacheTotal != nil {
		r.cacheTotal.WithLabelValues("search", result).Inc()
	}
}
