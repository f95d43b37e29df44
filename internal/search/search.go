// Package search answers similarity queries over stored embeddings. The scan
// is brute force over the candidate pool, which is the right trade at this
// corpus scale; an approximate index would be a separate component.
package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/kvasirlabs/semidx/internal/embed"
	"github.com/kvasirlabs/semidx/internal/store"
)

// DefaultLimit caps result counts when the caller passes no limit.
const DefaultLimit = 10

// Result is one ranked hit. Rank is 1-based and dense, assigned after
// filtering and sorting.
type Result struct {
	Record     *store.EmbeddingRecord
	Similarity float64
	Rank       int
}

// Options narrows a query.
type Options struct {
	// Types restricts the candidate pool; empty means all types.
	Types []store.ContentType

	// Limit truncates the ranked list; non-positive means DefaultLimit.
	Limit int

	// Threshold drops candidates scoring below it.
	Threshold float64
}

// Searcher composes the embedder and vector store.
type Searcher struct {
	store    *store.Store
	embedder embed.Embedder
}

func New(st *store.Store, emb embed.Embedder) *Searcher {
	return &Searcher{store: st, embedder: emb}
}

// SearchText embeds the query and ranks stored chunks against it.
func (s *Searcher) SearchText(ctx context.Context, query string, opts Options) ([]Result, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.SearchVector(ctx, vec, opts)
}

// SearchVector ranks stored chunks against a raw query vector.
func (s *Searcher) SearchVector(ctx context.Context, query []float32, opts Options) ([]Result, error) {
	candidates, err := s.store.GetAllEmbeddings(ctx, opts.Types...)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	results := score(query, candidates, opts.Threshold, nil)
	return rank(results, opts.Limit), nil
}

// FindSimilar ranks stored items against an already-indexed item, identified
// by its chunk 0 vector. The source itself is excluded, and multi-chunk items
// are collapsed to their best-scoring chunk.
func (s *Searcher) FindSimilar(ctx context.Context, contentType store.ContentType, contentID string, opts Options) ([]Result, error) {
	source, err := s.store.GetEmbedding(ctx, contentType, contentID, 0)
	if err != nil {
		return nil, fmt.Errorf("source %s/%s: %w", contentType, contentID, err)
	}

	candidates, err := s.store.GetAllEmbeddings(ctx, opts.Types...)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	exclude := func(r *store.EmbeddingRecord) bool {
		return r.ContentType == contentType && r.ContentID == contentID
	}
	results := score(source.Embedding, candidates, opts.Threshold, exclude)
	return rank(dedupe(results), opts.Limit), nil
}

// score computes similarities, applying the threshold and exclusion filters.
func score(query []float32, candidates []*store.EmbeddingRecord, threshold float64, exclude func(*store.EmbeddingRecord) bool) []Result {
	var out []Result
	for _, c := range candidates {
		if exclude != nil && exclude(c) {
			continue
		}
		sim := CosineSimilarity(query, c.Embedding)
		if sim < threshold {
			continue
		}
		out = append(out, Result{Record: c, Similarity: sim})
	}
	return out
}

// dedupe keeps the best-scoring chunk per (type, id). Input order is
// arbitrary; output order is not significant either since rank sorts.
func dedupe(results []Result) []Result {
	type key struct {
		t  store.ContentType
		id string
	}
	best := make(map[key]Result, len(results))
	var order []key
	for _, r := range results {
		k := key{r.Record.ContentType, r.Record.ContentID}
		cur, seen := best[k]
		if !seen {
			order = append(order, k)
		}
		if !seen || r.Similarity > cur.Similarity {
			best[k] = r
		}
	}
	out := make([]Result, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

// rank sorts descending by similarity, assigns dense 1-based ranks, and
// truncates to limit.
func rank(results []Result, limit int) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// CosineSimilarity returns the normalized dot product of a and b. Mismatched
// lengths and zero-magnitude vectors score 0 rather than erroring.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
