package expansion

import (
	"context"
	"time"
)

// Generator produces free-form query rewrites. Implemented by the OpenAI
// chat transport; mocked in tests.
type Generator interface {
	Generate(ctx context.Context, instruction, query string) (string, error)
}

// kv is the consumer interface for the expansion cache.
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
