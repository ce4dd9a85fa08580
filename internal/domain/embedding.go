package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token usage through the
// decorator chain. Fallback marks vectors derived locally when the remote
// provider was unavailable.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
	Fallback     bool
}

// ModelSpec is the capability record for an embedding model, resolved once
// at construction instead of probing the provider at call time.
type ModelSpec struct {
	Name       string
	Dimensions int
}

// DefaultModelSpec is used when the configured model is unknown.
var DefaultModelSpec = ModelSpec{Name: "text-embedding-3-small", Dimensions: 768}

// knownModels maps model identifiers to their capability records.
var knownModels = map[string]ModelSpec{
	"text-embedding-3-small":  {Name: "text-embedding-3-small", Dimensions: 768},
	"text-embedding-3-large":  {Name: "text-embedding-3-large", Dimensions: 3072},
	"text-embedding-ada-002":  {Name: "text-embedding-ada-002", Dimensions: 1536},
	"bge-multilingual-gemma2": {Name: "bge-multilingual-gemma2", Dimensions: 3584},
}

// ResolveModel returns the capability record for a model identifier, falling
// back to DefaultModelSpec (with the given name) for unknown models.
func ResolveModel(name string) ModelSpec {
	if spec, ok := knownModels[name]; ok {
		return spec
	}
	if name == "" {
		return DefaultModelSpec
	}
	return ModelSpec{Name: name, Dimensions: DefaultModelSpec.Dimensions}
}
