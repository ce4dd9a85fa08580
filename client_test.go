package ragcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/db"
	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/domain"
)

// stubStore is an in-memory db.Store for wiring tests.
type stubStore struct {
	kv      map[string][]byte
	knn     *db.SearchResult
	text    *db.SearchResult
	knnErr  error
	closed  bool
	pingErr error
}

func newStubStore() *stubStore {
	return &stubStore{kv: make(map[string][]byte)}
}

func (s *stubStore) Ping(_ context.Context) error { return s.pingErr }
func (s *stubStore) Close()                       { s.closed = true }

func (s *stubStore) WaitForReady(_ context.Context, _ time.Duration) error { return s.pingErr }

func (s *stubStore) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := s.kv[key]; ok {
		return v, nil
	}
	return nil, db.ErrKeyNotFound
}

func (s *stubStore) Set(_ context.Context, key string, value []byte) error {
	s.kv[key] = value
	return nil
}

func (s *stubStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.kv[key] = value
	return nil
}

func (s *stubStore) SearchKNN(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
	if s.knnErr != nil {
		return nil, s.knnErr
	}
	if s.knn != nil {
		return s.knn, nil
	}
	return &db.SearchResult{}, nil
}

func (s *stubStore) SearchText(_ context.Context, _ *db.TextQuery) (*db.SearchResult, error) {
	if s.text != nil {
		return s.text, nil
	}
	return &db.SearchResult{}, nil
}

func TestNew_NoAddress(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("expected error when no address provided")
	}
}

func TestClient_Retrieve_VectorPath(t *testing.T) {
	store := newStubStore()
	store.knn = &db.SearchResult{
		Total: 1,
		Entries: []db.SearchEntry{{
			Key:   "kb:doc:42",
			Score: 0.81,
			Fields: map[string]string{
				"title":    "Tuition Fees",
				"content":  "Fees are invoiced at the start of each term.",
				"doc_type": "policy",
				"category": "fees",
			},
		}},
	}
	client := wireClient(store, &clientConfig{embCacheCapacity: 16})

	out, err := client.Retrieve(context.Background(), "when are fees due",
		WithLimit(5), WithThreshold(0.6),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out.Results))
	}
	r := out.Results[0]
	if r.ID != "42" || r.Title != "Tuition Fees" || r.Source != "vector" {
		t.Errorf("unexpected result: %+v", r)
	}
	if out.Confidence != 0.92 {
		t.Errorf("expected confidence 0.92, got %v", out.Confidence)
	}
}

func TestClient_Retrieve_DegradesOnStoreError(t *testing.T) {
	store := newStubStore()
	store.knnErr = errors.New("index missing")
	client := wireClient(store, &clientConfig{embCacheCapacity: 16})

	out, err := client.Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("store failure must degrade, not error: %v", err)
	}
	if len(out.Results) != 0 || out.Confidence != 0.5 {
		t.Errorf("expected empty neutral outcome, got %+v", out)
	}
}

func TestClient_Retrieve_InvalidLimit(t *testing.T) {
	client := wireClient(newStubStore(), &clientConfig{embCacheCapacity: 16})

	if _, err := client.Retrieve(context.Background(), "x", WithLimit(100)); err == nil {
		t.Fatal("expected validation error for oversized limit")
	}
}

func TestClient_Close(t *testing.T) {
	store := newStubStore()
	client := wireClient(store, &clientConfig{embCacheCapacity: 16})

	client.Close()
	if !store.closed {
		t.Error("Close must release the store")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}
	opts := []Option{
		WithRedis("localhost:6379", "pw"),
		WithIndex("custom:idx", "custom:"),
		WithRanking(0.8, 0.5, 0.2),
		WithEmbeddingCacheSize(64),
		WithBlocklist("politics"),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) != 1 || cfg.addrs[0] != "localhost:6379" || cfg.password != "pw" {
		t.Errorf("redis option not applied: %+v", cfg)
	}
	if cfg.indexName != "custom:idx" || cfg.keyPrefix != "custom:" {
		t.Errorf("index option not applied: %+v", cfg)
	}
	if cfg.lambda != 0.8 || cfg.overlapThreshold != 0.5 || cfg.categoryPenalty != 0.2 {
		t.Errorf("ranking option not applied: %+v", cfg)
	}
	if cfg.embCacheCapacity != 64 {
		t.Errorf("cache size option not applied: %+v", cfg)
	}
	if len(cfg.blocklistExtra) != 1 || cfg.blocklistExtra[0] != "politics" {
		t.Errorf("blocklist option not applied: %+v", cfg)
	}
}

func TestNoopGenerator(t *testing.T) {
	if _, err := (noopGenerator{}).Generate(context.Background(), "i", "q"); err == nil {
		t.Fatal("expected error from noopGenerator")
	}
}

func TestPseudoEmbedder_Deterministic(t *testing.T) {
	p := pseudoEmbedder{model: domain.ModelSpec{Name: "test-model", Dimensions: 32}}

	a, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := p.Embed(context.Background(), "hello")

	if len(a.Embedding) != len(b.Embedding) {
		t.Fatal("dimension mismatch")
	}
	for i := range a.Embedding {
		if a.Embedding[i] != b.Embedding[i] {
			t.Fatal("pseudo embedding must be deterministic")
		}
	}
	if !a.Fallback {
		t.Error("pseudo embedding must be marked fallback")
	}
}
