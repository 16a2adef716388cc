package ai

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/memora/memora/store"
)

// MockEmbedder generates deterministic embeddings from a text hash. It
// powers demo mode and tests: identical text always maps to an identical
// unit vector, so similarity rankings are stable without a live provider.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder creates a mock embedder producing text-slot sized vectors.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{dimensions: store.TextVectorSize}
}

// Embed creates a deterministic embedding from text.
func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))

	// Use the hash as an LCG seed for pseudo-random generation.
	seed := h.Sum64()
	embedding := make([]float32, m.dimensions)
	for i := 0; i < m.dimensions; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (m *MockEmbedder) Dimensions() int {
	return m.dimensions
}

// normalize converts an embedding to a unit vector.
func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = v / norm
	}
	return normalized
}

// Ensure MockEmbedder implements EmbeddingService.
var _ EmbeddingService = (*MockEmbedder)(nil)
