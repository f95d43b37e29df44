package embed

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// StaticDimensions is the default dimension for the static embedder.
const StaticDimensions = 256

// Token and n-gram contribution weights for the static embedder.
const (
	tokenWeight  = 0.7
	ngramWeight  = 0.3
	ngramSize    = 3
)

// StaticEmbedder generates deterministic hash-based embeddings with no
// external runtime. Quality is far below a real model; it exists for offline
// operation and for tests, where determinism matters more than semantics.
type StaticEmbedder struct {
	dims int
}

var _ Embedder = (*StaticEmbedder)(nil)

// NewStaticEmbedder creates a static embedder with the given dimension
// (0 = StaticDimensions).
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = StaticDimensions
	}
	return &StaticEmbedder{dims: dims}
}

// Embed generates a deterministic embedding for a single text.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector := make([]float32, e.dims)

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return vector, nil
	}

	for _, token := range tokenize(trimmed) {
		vector[hashToIndex(token, e.dims)] += tokenWeight
	}
	lowered := strings.ToLower(trimmed)
	for i := 0; i+ngramSize <= len(lowered); i++ {
		vector[hashToIndex(lowered[i:i+ngramSize], e.dims)] += ngramWeight
	}

	return normalizeVector(vector), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		results[i] = vec
	}
	return results, nil
}

// Dimensions returns the embedding dimension.
func (e *StaticEmbedder) Dimensions() int { return e.dims }

// ModelName returns the static model identifier.
func (e *StaticEmbedder) ModelName() string { return "static" }

// Close is a no-op.
func (e *StaticEmbedder) Close() error { return nil }

// tokenize splits text on non-alphanumeric runes and lowercases the tokens.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hashToIndex(s string, dims int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(dims))
}
