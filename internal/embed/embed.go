// Package embed abstracts the external embedding capability behind a small
// interface so any backing implementation (local runtime, remote inference)
// is interchangeable without touching the indexer or search layers.
package embed

import (
	"context"
	"fmt"
	"math"
)

// Default provider parameters.
const (
	// DefaultBatchSize is the number of texts sent per provider request.
	DefaultBatchSize = 32

	// DefaultCacheSize is the default number of embeddings kept by Cached.
	DefaultCacheSize = 1000
)

// Embedder generates fixed-dimension vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, order-preserving,
	// one vector per input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}

// DimensionError reports a provider returning a vector whose length does not
// match the expected dimension. Index identifies the offending input within
// the batch.
type DimensionError struct {
	Index    int
	Expected int
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding %d has dimension %d, expected %d", e.Index, e.Got, e.Expected)
}

// validateBatch checks that every vector has the expected dimension.
// A mismatch fails the whole batch.
func validateBatch(expected int, vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != expected {
			return &DimensionError{Index: i, Expected: expected, Got: len(v)}
		}
	}
	return nil
}

// normalizeVector scales a vector to unit length. Zero vectors are returned
// unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
