package embedding

import (
	"context"
	"fmt"
	"math"
)

// Task types understood by Gemini; other providers ignore them.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// EmbeddingProvider defines the interface for generating text embeddings.
// Returned vectors are unit length.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
}

// NewProvider selects a provider by name ("ollama", "gemini" or "jina"). apiKey belongs to
// the selected provider.
func NewProvider(name, baseURL, model, apiKey string) (EmbeddingProvider, error) {
	switch name {
	case "ollama", "":
		return NewOllamaProvider(baseURL, model), nil
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini embeddings require an api key")
		}
		return NewGeminiProvider(apiKey), nil
	case "jina":
		if apiKey == "" {
			return nil, fmt.Errorf("jina embeddings require an api key")
		}
		return NewJinaProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", name)
	}
}

// normalizeVector normalizes a vector to unit length (magnitude = 1)
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
