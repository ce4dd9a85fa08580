package ragcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/cache"
	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/db"
	dbRedis "github.com/Lbridge2222/bridge-fullstack-sub000/internal/db/redis"
	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/domain"
	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/repository/embcache"
	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/repository/knowledge"
	embeddinguc "github.com/Lbridge2222/bridge-fullstack-sub000/internal/usecase/embedding"
	expansionuc "github.com/Lbridge2222/bridge-fullstack-sub000/internal/usecase/expansion"
	retrievaluc "github.com/Lbridge2222/bridge-fullstack-sub000/internal/usecase/retrieval"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultEmbCacheCapacity = 2048
	defaultEmbCacheTTL      = 24 * time.Hour
	defaultSearchCacheTTL   = 120 * time.Second
	defaultExpansionTTL     = 5 * time.Minute
)

// EmbeddingResult is the public embedding output.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder is the public embedding provider interface.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// Generator produces free-form query rewrites for expansion.
type Generator interface {
	Generate(ctx context.Context, instruction, query string) (string, error)
}

// Client is the embedded retrieval engine entry point.
type Client struct {
	store db.Store
	svc   *retrievaluc.Service
}

// New creates a Client and connects to the database.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		embCacheCapacity: defaultEmbCacheCapacity,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("ragcore: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("ragcore: create redis store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("ragcore: database not ready: %w", err)
	}

	return wireClient(store, cfg), nil
}

func wireClient(store db.Store, cfg *clientConfig) *Client {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	model := domain.DefaultModelSpec

	// Embedder chain: provider (or pseudo) -> cached -> fallback.
	var inner domain.Embedder = pseudoEmbedder{model: model}
	if cfg.embedder != nil {
		inner = &embedderAdapter{inner: cfg.embedder}
	}
	lru := cache.NewLRUStore(cfg.embCacheCapacity)
	cached := embcache.New(inner, lru, model.Name, defaultEmbCacheTTL, nil, logger)
	embedder := embeddinguc.NewFallbackEmbedder(cached, model, nil, logger)

	var gen expansionuc.Generator = noopGenerator{}
	if cfg.generator != nil {
		gen = cfg.generator
	}
	expansion := expansionuc.New(
		gen, store, cfg.blocklistExtra, defaultExpansionTTL, nil, nil, logger,
	)

	indexName := cfg.indexName
	if indexName == "" {
		indexName = "kb:docs:idx"
	}
	keyPrefix := cfg.keyPrefix
	if keyPrefix == "" {
		keyPrefix = "kb:"
	}
	repo := knowledge.New(store, store, knowledge.Config{
		IndexName: indexName,
		KeyPrefix: keyPrefix,
		CacheTTL:  defaultSearchCacheTTL,
	}, nil, nil, logger)

	svc := retrievaluc.New(
		repo, embedder, expansion,
		retrievaluc.Config{
			Lambda:           cfg.lambda,
			OverlapThreshold: cfg.overlapThreshold,
			CategoryPenalty:  cfg.categoryPenalty,
		},
		nil, nil, logger,
	)

	return &Client{store: store, svc: svc}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Result is one retrieved knowledge-base passage.
type Result struct {
	ID       string
	Title    string
	Content  string
	DocType  string
	Category string
	Score    float64
	Source   string
}

// Output is the outcome of a Retrieve call.
type Output struct {
	Results       []Result
	Confidence    float64
	CacheHit      bool
	ExpansionUsed bool
}

// RetrieveOption tunes a single Retrieve call.
type RetrieveOption func(*retrieveParams)

type retrieveParams struct {
	docTypes   []string
	categories []string
	threshold  float64
	limit      int
	hints      domain.SubjectHints
	sessionID  string
}

// WithLimit sets the result count (default 5, max 25).
func WithLimit(n int) RetrieveOption {
	return func(p *retrieveParams) { p.limit = n }
}

// WithThreshold sets the similarity floor for strong evidence (default 0.5).
func WithThreshold(t float64) RetrieveOption {
	return func(p *retrieveParams) { p.threshold = t }
}

// WithDocTypes restricts results to the given document types.
func WithDocTypes(types ...string) RetrieveOption {
	return func(p *retrieveParams) { p.docTypes = types }
}

// WithCategories restricts results to the given categories.
func WithCategories(categories ...string) RetrieveOption {
	return func(p *retrieveParams) { p.categories = categories }
}

// WithSubject supplies situational context: a named subject pins expansions,
// and course/campus bias the search text.
func WithSubject(name, course, campus string) RetrieveOption {
	return func(p *retrieveParams) {
		p.hints = domain.SubjectHints{Name: name, Course: course, Campus: campus}
	}
}

// WithSession scopes expansion caching to a conversation.
func WithSession(id string) RetrieveOption {
	return func(p *retrieveParams) { p.sessionID = id }
}

// Retrieve answers a query with diverse, deduplicated passages and a
// confidence estimate. Backend failures degrade the result rather than
// failing the call; only invalid parameters return an error.
func (c *Client) Retrieve(ctx context.Context, query string, opts ...RetrieveOption) (Output, error) {
	var p retrieveParams
	for _, o := range opts {
		o(&p)
	}

	q, err := domain.NewQuery(
		query, p.docTypes, p.categories,
		p.threshold, p.limit, p.hints, p.sessionID,
	)
	if err != nil {
		return Output{}, fmt.Errorf("ragcore: %w", err)
	}

	out := c.svc.Retrieve(ctx, q)

	results := make([]Result, len(out.Results))
	for i, cand := range out.Results {
		results[i] = Result{
			ID:       cand.ID,
			Title:    cand.Title,
			Content:  cand.Content,
			DocType:  cand.DocType,
			Category: cand.Category,
			Score:    cand.Score(),
			Source:   string(cand.Source),
		}
	}

	return Output{
		Results:       results,
		Confidence:    out.Confidence,
		CacheHit:      out.CacheHit,
		ExpansionUsed: out.ExpansionUsed,
	}, nil
}

// embedderAdapter wraps the public Embedder to satisfy the internal one.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// pseudoEmbedder serves hash-derived vectors when no provider is configured.
type pseudoEmbedder struct {
	model domain.ModelSpec
}

func (p pseudoEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{
		Embedding: embeddinguc.PseudoVector(text, p.model.Dimensions),
		Fallback:  true,
	}, nil
}

// noopGenerator returns an error on Generate (used when no generator
// configured); generic expansion then degrades to the original query alone.
type noopGenerator struct{}

func (noopGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	return "", errors.New("ragcore: generator not configured (use WithGenerator)")
}
