package embed

import (
	"context"
	"fmt"
	"sync"
)

// Lazy defers construction of the backing embedder until the first call.
// Opening a model runtime or dialing a remote endpoint is expensive; commands
// that never embed anything (stats, unchanged re-index runs) should not pay
// for it.
//
// Lazy also enforces the dimension contract: every vector returned by the
// backing embedder must have the configured dimension, and a mismatch fails
// the whole call naming the offending batch index.
type Lazy struct {
	dims    int
	model   string
	factory func(ctx context.Context) (Embedder, error)

	mu    sync.Mutex
	inner Embedder
}

// NewLazy creates a lazily-initialized embedder. dims is the dimension the
// backing embedder is required to produce; model is reported by ModelName
// before initialization.
func NewLazy(dims int, model string, factory func(ctx context.Context) (Embedder, error)) *Lazy {
	return &Lazy{dims: dims, model: model, factory: factory}
}

// get initializes the backing embedder on first use. Failed initialization is
// retried on the next call rather than latched.
func (l *Lazy) get(ctx context.Context) (Embedder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inner != nil {
		return l.inner, nil
	}
	inner, err := l.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if inner.Dimensions() != l.dims {
		_ = inner.Close()
		return nil, fmt.Errorf("embedder %s produces %d dimensions, configured for %d",
			inner.ModelName(), inner.Dimensions(), l.dims)
	}
	l.inner = inner
	return inner, nil
}

// Embed generates an embedding for a single text.
func (l *Lazy) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := l.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts, validating that each
// returned vector has the configured dimension.
func (l *Lazy) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	inner, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	vecs, err := inner.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(vecs), len(texts))
	}
	if err := validateBatch(l.dims, vecs); err != nil {
		return nil, err
	}
	return vecs, nil
}

// Dimensions returns the configured embedding dimension.
func (l *Lazy) Dimensions() int { return l.dims }

// ModelName returns the configured model identifier.
func (l *Lazy) ModelName() string { return l.model }

// Close closes the backing embedder if it was ever initialized.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inner == nil {
		return nil
	}
	err := l.inner.Close()
	l.inner = nil
	return err
}

var _ Embedder = (*Lazy)(nil)
