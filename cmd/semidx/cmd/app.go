package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kvasirlabs/semidx/internal/config"
	"github.com/kvasirlabs/semidx/internal/embed"
	"github.com/kvasirlabs/semidx/internal/store"
)

// app bundles the pieces every command needs.
type app struct {
	root     string
	cfg      *config.Config
	store    *store.Store
	embedder embed.Embedder
}

func (a *app) close() {
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// newApp loads configuration from the working directory and opens the vector
// store. The embedder stays lazy: commands that never embed (stats) pay
// nothing for it.
func newApp() (*app, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.VectorDBPath(root), cfg.Embeddings.Dimensions)
	if err != nil {
		return nil, err
	}

	return &app{
		root:     root,
		cfg:      cfg,
		store:    st,
		embedder: newEmbedder(cfg),
	}, nil
}

// newEmbedder wires the configured provider behind lazy initialization and
// an LRU result cache.
func newEmbedder(cfg *config.Config) embed.Embedder {
	ec := cfg.Embeddings

	factory := func(ctx context.Context) (embed.Embedder, error) {
		switch ec.Provider {
		case "ollama":
			return embed.NewOllamaEmbedder(embed.OllamaConfig{
				Host:       ec.OllamaHost,
				Model:      ec.Model,
				Dimensions: ec.Dimensions,
				BatchSize:  ec.BatchSize,
			}), nil
		case "openai":
			return embed.NewOpenAIEmbedder(embed.OpenAIConfig{
				Model:      ec.Model,
				Dimensions: ec.Dimensions,
				BatchSize:  ec.BatchSize,
			})
		case "static":
			return embed.NewStaticEmbedder(ec.Dimensions), nil
		default:
			return nil, fmt.Errorf("unsupported embedding provider: %q", ec.Provider)
		}
	}

	lazy := embed.NewLazy(ec.Dimensions, ec.Model, factory)
	return embed.NewCached(lazy, ec.CacheSize)
}

// taskDBPath resolves the configured task database location.
func (a *app) taskDBPath() string {
	path := a.cfg.Paths.TasksDB
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.root, path)
	}
	return path
}

// dataDir returns the index data directory, creating it if needed.
func (a *app) dataDir() (string, error) {
	dir := a.cfg.Paths.DataDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(a.root, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}
