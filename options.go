package ragcore

import "go.uber.org/zap"

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string

	embedder  Embedder
	generator Generator

	indexName string
	keyPrefix string

	lambda           float64
	overlapThreshold float64
	categoryPenalty  float64

	embCacheCapacity int
	blocklistExtra   []string

	logger *zap.Logger
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets the query embedding provider. Without it queries are
// embedded with deterministic hash-derived vectors.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerator sets the rewrite generator used for query expansion. Without
// it only entity-pinned expansions run; generic queries are not expanded.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithIndex overrides the knowledge-base index name and document key prefix.
// Defaults: "kb:docs:idx" and "kb:".
func WithIndex(name, keyPrefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
		c.keyPrefix = keyPrefix
	})
}

// WithRanking overrides the diversity tuning: the relevance weight, the
// near-duplicate overlap threshold, and the repeated-category penalty.
func WithRanking(lambda, overlapThreshold, categoryPenalty float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.lambda = lambda
		c.overlapThreshold = overlapThreshold
		c.categoryPenalty = categoryPenalty
	})
}

// WithEmbeddingCacheSize sets the in-memory embedding cache capacity.
// Default: 2048 entries.
func WithEmbeddingCacheSize(capacity int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embCacheCapacity = capacity
	})
}

// WithBlocklist extends the expansion drift guard with deployment-specific
// terms an expansion must never introduce.
func WithBlocklist(terms ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.blocklistExtra = append(c.blocklistExtra, terms...)
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
