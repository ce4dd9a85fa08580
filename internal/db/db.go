package db

import (
	"context"
	"time"
)

// Store is the database facade for the retrieval engine. The knowledge base
// is read-only from this core's perspective; KV operations back the
// Redis-hosted caches.
type Store interface {
	Pinger
	KVStore
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations with optional expiry.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Searcher provides search operations over the knowledge-base FT index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchText(ctx context.Context, q *TextQuery) (*SearchResult, error)
}

// KNNQuery describes a vector-similarity search against the knowledge index.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	DocTypes     []string
	Categories   []string
	ReturnFields []string
}

// TextQuery describes a keyword search across title and content fields.
// Keywords are OR-matched within each field.
type TextQuery struct {
	IndexName    string
	Keywords     []string
	DocTypes     []string
	Categories   []string
	TopK         int
	ReturnFields []string
}

// SearchEntry is one raw row from an FT.SEARCH reply.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// SearchResult is a parsed FT.SEARCH reply.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}
