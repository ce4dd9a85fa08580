package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/db"
)

func TestTTLStore_SetGet(t *testing.T) {
	s := NewTTLStore(time.Minute)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("expected v, got %s", got)
	}
}

func TestTTLStore_Missing(t *testing.T) {
	s := NewTTLStore(time.Minute)

	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestTTLStore_Expiry(t *testing.T) {
	s := NewTTLStore(time.Minute)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	if err := s.SetWithTTL(ctx, "k", []byte("v"), 2*time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Still fresh just before expiry.
	now = now.Add(119 * time.Second)
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("entry expired early: %v", err)
	}

	// Stale after TTL; evicted lazily on read.
	now = now.Add(2 * time.Minute)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after expiry, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expected lazy eviction to remove entry, len=%d", s.Len())
	}
}

func TestTTLStore_ZeroTTLNeverExpires(t *testing.T) {
	s := NewTTLStore(0)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(240 * time.Hour)
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("entry without TTL expired: %v", err)
	}
}

func TestLRUStore_EvictsLeastRecentlyUsed(t *testing.T) {
	s := NewLRUStore(2)
	ctx := context.Background()

	_ = s.Set(ctx, "a", []byte("1"))
	_ = s.Set(ctx, "b", []byte("2"))

	// Touch "a" so "b" becomes the eviction candidate.
	if _, err := s.Get(ctx, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = s.Set(ctx, "c", []byte("3"))

	if _, err := s.Get(ctx, "b"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected b to be evicted, got %v", err)
	}
	if _, err := s.Get(ctx, "a"); err != nil {
		t.Errorf("expected a to survive: %v", err)
	}
	if _, err := s.Get(ctx, "c"); err != nil {
		t.Errorf("expected c to be present: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("expected len 2, got %d", s.Len())
	}
}

func TestLRUStore_OverwriteRefreshes(t *testing.T) {
	s := NewLRUStore(2)
	ctx := context.Background()

	_ = s.Set(ctx, "a", []byte("1"))
	_ = s.Set(ctx, "b", []byte("2"))
	_ = s.Set(ctx, "a", []byte("updated"))
	_ = s.Set(ctx, "c", []byte("3"))

	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("expected a to survive overwrite: %v", err)
	}
	if string(got) != "updated" {
		t.Errorf("expected updated value, got %s", got)
	}
	if _, err := s.Get(ctx, "b"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected b evicted, got %v", err)
	}
}
