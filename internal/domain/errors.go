package domain

import "errors"

var (
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals an expansion-generation failure.
	ErrGenerationProviderError = errors.New("generation provider error")
	// ErrVectorSearchUnavailable signals that the store's vector path failed.
	ErrVectorSearchUnavailable = errors.New("vector search unavailable")
)
