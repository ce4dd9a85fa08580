package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/domain"
)

// FallbackEmbedder wraps a real embedder and converts every provider failure
// into a deterministic pseudo-vector derived from the input text. The same
// text always yields the same vector, so similarity comparisons stay
// internally consistent while the provider is down. Callers therefore never
// see an embedding error.
type FallbackEmbedder struct {
	inner         domain.Embedder
	model         domain.ModelSpec
	fallbackTotal prometheus.Counter
	logger        *zap.Logger
}

// NewFallbackEmbedder creates the never-fail decorator. The model spec fixes
// the fallback vector's dimension.
func NewFallbackEmbedder(
	inner domain.Embedder, model domain.ModelSpec,
	fallbackTotal prometheus.Counter, logger *zap.Logger,
) *FallbackEmbedder {
	return &FallbackEmbedder{
		inner:         inner,
		model:         model,
		fallbackTotal: fallbackTotal,
		logger:        logger,
	}
}

// Embed delegates to the inner embedder and degrades to the hash-derived
// pseudo-vector on any failure.
func (f *FallbackEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	result, err := f.inner.Embed(ctx, text)
	if err == nil {
		return result, nil
	}

	f.logger.Warn("Embedding provider failed, using deterministic fallback vector",
		zap.String("model", f.model.Name),
		zap.Error(err),
	)
	if f.fallbackTotal != nil {
		f.fallbackTotal.Inc()
	}

	return domain.EmbeddingResult{
		Embedding: PseudoVector(text, f.model.Dimensions),
		Fallback:  true,
	}, nil
}

// PseudoVector derives a unit-length vector from a seeded hash of the text.
// A chained sha256 fills the vector 8 floats per digest, so the construction
// is portable and has no dependence on any RNG.
func PseudoVector(text string, dimensions int) []float32 {
	if dimensions <= 0 {
		dimensions = domain.DefaultModelSpec.Dimensions
	}

	vec := make([]float32, dimensions)
	seed := sha256.Sum256([]byte(text))
	digest := seed

	for i := 0; i < dimensions; i += 8 {
		for j := 0; j < 8 && i+j < dimensions; j++ {
			u := binary.LittleEndian.Uint32(digest[j*4:])
			// Map uint32 onto [-1, 1].
			vec[i+j] = float32(float64(u)/float64(math.MaxUint32)*2 - 1)
		}
		digest = sha256.Sum256(digest[:])
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := 1 / math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) * inv)
		}
	}
	return vec
}
