// Package cache provides process-scoped key-value stores with TTL metadata.
// Both stores satisfy the same consumer interface as the Redis KV store, so
// every cache in the engine can be backed by either and tests can inject
// isolated instances.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/db"
)

// TTLStore is an in-memory key-value store with per-entry expiry. Expired
// entries are evicted lazily on read; there is no background sweeper.
type TTLStore struct {
	mu         sync.Mutex
	entries    map[string]ttlEntry
	defaultTTL time.Duration
	now        func() time.Time
}

type ttlEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewTTLStore creates a TTL store. defaultTTL applies to Set; SetWithTTL
// overrides it per entry. defaultTTL <= 0 means entries never expire.
func NewTTLStore(defaultTTL time.Duration) *TTLStore {
	return &TTLStore{
		entries:    make(map[string]ttlEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the value for key, or db.ErrKeyNotFound when absent or expired.
func (s *TTLStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, db.ErrKeyNotFound
	}
	return e.value, nil
}

// Set stores a value with the default TTL.
func (s *TTLStore) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, s.defaultTTL)
}

// SetWithTTL stores a value with an explicit expiry. Last writer wins; values
// for the same key derive from the same inputs, so racing writers are
// equivalent.
func (s *TTLStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = ttlEntry{value: value, expiresAt: expiresAt}
	return nil
}

// Len reports the number of entries, counting not-yet-evicted expired ones.
func (s *TTLStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// LRUStore is an in-memory store bounded by capacity, evicting the least
// recently accessed entry under pressure. Reads refresh recency.
type LRUStore struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

type lruEntry struct {
	key   string
	value []byte
}

// NewLRUStore creates an LRU store holding at most capacity entries.
func NewLRUStore(capacity int) *LRUStore {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRUStore{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the value for key and marks it most recently used.
func (s *LRUStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	s.order.MoveToFront(el)
	return el.Value.(*lruEntry).value, nil
}

// Set stores a value, evicting the least recently used entry when full.
func (s *LRUStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		el.Value.(*lruEntry).value = value
		s.order.MoveToFront(el)
		return nil
	}

	if s.order.Len() >= s.capacity {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.entries, oldest.Value.(*lruEntry).key)
		}
	}

	s.entries[key] = s.order.PushFront(&lruEntry{key: key, value: value})
	return nil
}

// SetWithTTL stores a value; the LRU store ignores TTL and relies on
// capacity-based eviction only.
func (s *LRUStore) SetWithTTL(ctx context.Context, key string, value []byte, _ time.Duration) error {
	return s.Set(ctx, key, value)
}

// Len reports the number of cached entries.
func (s *LRUStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
