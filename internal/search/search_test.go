package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvasirlabs/semidx/internal/store"
)

const testDims = 4

// fixedEmbedder returns a preset vector for any text.
type fixedEmbedder struct {
	vec []float32
	err error
}

func (f *fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f.vec, f.err
}

func (f *fixedEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, f.err
}

func (f *fixedEmbedder) Dimensions() int   { return testDims }
func (f *fixedEmbedder) ModelName() string { return "fixed" }
func (f *fixedEmbedder) Close() error      { return nil }

func seedStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open("", testDims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func mustStore(t *testing.T, st *store.Store, ctype store.ContentType, id string, chunk int, vec []float32) {
	t.Helper()
	require.NoError(t, st.StoreEmbedding(context.Background(), ctype, id, chunk, "preview of "+id, "h", vec, ""))
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0, 0}
	b := []float32{0, 1, 0, 0}

	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity(a, []float32{-1, 0, 0, 0}), 1e-9)
	assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))

	// Degenerate inputs score 0 instead of erroring.
	assert.Zero(t, CosineSimilarity(a, []float32{1, 0}))
	assert.Zero(t, CosineSimilarity(a, []float32{0, 0, 0, 0}))
	assert.Zero(t, CosineSimilarity(nil, nil))
}

func TestCosineSimilarity_Scale(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	scaled := []float32{2, 4, 6, 8}
	assert.InDelta(t, 1.0, CosineSimilarity(a, scaled), 1e-6, "magnitude does not matter")
}

// Two orthogonal vectors, threshold 0.5: only the aligned one comes back,
// at similarity 1 and rank 1.
func TestSearchVector_ThresholdFilters(t *testing.T) {
	st := seedStore(t)
	mustStore(t, st, store.ContentTypeTask, "a", 0, []float32{1, 0, 0, 0})
	mustStore(t, st, store.ContentTypeTask, "b", 0, []float32{0, 1, 0, 0})

	s := New(st, &fixedEmbedder{})
	results, err := s.SearchVector(context.Background(), []float32{1, 0, 0, 0}, Options{Threshold: 0.5})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Record.ContentID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.Equal(t, 1, results[0].Rank)
}

func TestSearchVector_RankingAndLimit(t *testing.T) {
	st := seedStore(t)
	mustStore(t, st, store.ContentTypeDoc, "far", 0, []float32{0, 0, 1, 0})
	mustStore(t, st, store.ContentTypeDoc, "near", 0, []float32{1, 0.1, 0, 0})
	mustStore(t, st, store.ContentTypeDoc, "mid", 0, []float32{1, 1, 0, 0})

	s := New(st, &fixedEmbedder{})
	results, err := s.SearchVector(context.Background(), []float32{1, 0, 0, 0}, Options{})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "near", results[0].Record.ContentID)
	assert.Equal(t, "mid", results[1].Record.ContentID)
	assert.Equal(t, "far", results[2].Record.ContentID)
	assert.Equal(t, []int{1, 2, 3}, []int{results[0].Rank, results[1].Rank, results[2].Rank})

	limited, err := s.SearchVector(context.Background(), []float32{1, 0, 0, 0}, Options{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSearchVector_TypeFilter(t *testing.T) {
	st := seedStore(t)
	mustStore(t, st, store.ContentTypeTask, "t1", 0, []float32{1, 0, 0, 0})
	mustStore(t, st, store.ContentTypeCode, "c1", 0, []float32{1, 0, 0, 0})

	s := New(st, &fixedEmbedder{})
	results, err := s.SearchVector(context.Background(), []float32{1, 0, 0, 0},
		Options{Types: []store.ContentType{store.ContentTypeCode}})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, store.ContentTypeCode, results[0].Record.ContentType)
}

func TestSearchText_UsesEmbedder(t *testing.T) {
	st := seedStore(t)
	mustStore(t, st, store.ContentTypeDoc, "d", 0, []float32{1, 0, 0, 0})

	s := New(st, &fixedEmbedder{vec: []float32{1, 0, 0, 0}})
	results, err := s.SearchText(context.Background(), "anything", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
}

func TestSearchText_EmbedError(t *testing.T) {
	s := New(seedStore(t), &fixedEmbedder{err: errors.New("provider down")})
	_, err := s.SearchText(context.Background(), "q", Options{})
	assert.Error(t, err)
}

func TestFindSimilar_ExcludesSourceAndDedupes(t *testing.T) {
	st := seedStore(t)
	mustStore(t, st, store.ContentTypeTask, "#1", 0, []float32{1, 0, 0, 0})
	// Multi-chunk neighbor: best chunk should represent it.
	mustStore(t, st, store.ContentTypeCode, "a.go", 0, []float32{1, 0.2, 0, 0})
	mustStore(t, st, store.ContentTypeCode, "a.go", 1, []float32{0, 1, 0, 0})
	mustStore(t, st, store.ContentTypeCode, "b.go", 0, []float32{0.7, 0.7, 0, 0})

	s := New(st, &fixedEmbedder{})
	results, err := s.FindSimilar(context.Background(), store.ContentTypeTask, "#1", Options{})
	require.NoError(t, err)

	require.Len(t, results, 2, "source excluded, a.go collapsed")
	assert.Equal(t, "a.go", results[0].Record.ContentID)
	assert.Equal(t, 0, results[0].Record.ChunkIndex, "best-scoring chunk wins")
	assert.Equal(t, "b.go", results[1].Record.ContentID)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
}

func TestFindSimilar_SearchTypes(t *testing.T) {
	st := seedStore(t)
	mustStore(t, st, store.ContentTypeTask, "#1", 0, []float32{1, 0, 0, 0})
	mustStore(t, st, store.ContentTypeTask, "#2", 0, []float32{1, 0.1, 0, 0})
	mustStore(t, st, store.ContentTypeDoc, "d.md", 0, []float32{1, 0.1, 0, 0})

	s := New(st, &fixedEmbedder{})
	results, err := s.FindSimilar(context.Background(), store.ContentTypeTask, "#1",
		Options{Types: []store.ContentType{store.ContentTypeDoc}})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "d.md", results[0].Record.ContentID)
}

func TestFindSimilar_MissingSource(t *testing.T) {
	s := New(seedStore(t), &fixedEmbedder{})
	_, err := s.FindSimilar(context.Background(), store.ContentTypeTask, "#404", Options{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRank_DenseAfterDedup(t *testing.T) {
	results := rank([]Result{
		{Similarity: 0.2},
		{Similarity: 0.9},
		{Similarity: 0.5},
	}, 0)

	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
	}
	assert.True(t, math.Abs(results[0].Similarity-0.9) < 1e-9)
}
