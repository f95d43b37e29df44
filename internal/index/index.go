// Package index composes the chunker, embedder, and vector store into
// (re)indexing runs over tasks and file trees. Change detection is hash
// based: unchanged content is skipped unless the caller forces a rebuild.
package index

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kvasirlabs/semidx/internal/chunker"
	"github.com/kvasirlabs/semidx/internal/embed"
	"github.com/kvasirlabs/semidx/internal/scanner"
	"github.com/kvasirlabs/semidx/internal/store"
	"github.com/kvasirlabs/semidx/internal/tasks"
)

// previewLen is how much chunk text is kept in content_preview.
const previewLen = 200

// Extension allowlists used when index_directory is called without explicit
// glob patterns.
var (
	codeExtensions = []string{
		".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".rb", ".rs",
		".java", ".c", ".h", ".cpp", ".hpp", ".cs", ".swift", ".kt",
		".sh", ".sql",
	}
	docExtensions = []string{".md", ".txt", ".rst", ".adoc"}
)

// Stats summarizes one indexing run. Sub-run stats merge by field-wise sum.
type Stats struct {
	ItemsIndexed  int
	ItemsSkipped  int
	ChunksCreated int
	Errors        int
	Duration      time.Duration
}

// Merge adds other's counters into s.
func (s *Stats) Merge(other Stats) {
	s.ItemsIndexed += other.ItemsIndexed
	s.ItemsSkipped += other.ItemsSkipped
	s.ChunksCreated += other.ChunksCreated
	s.Errors += other.Errors
	s.Duration += other.Duration
}

// Indexer drives indexing runs against one vector store.
type Indexer struct {
	store    *store.Store
	embedder embed.Embedder
	chunker  *chunker.Chunker
	scanner  *scanner.Scanner
	tasks    tasks.TaskSource
	logger   *slog.Logger
	exclude  []string
	progress func(done, total int)
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithTaskSource wires the task database; required for IndexTasks.
func WithTaskSource(ts tasks.TaskSource) Option {
	return func(ix *Indexer) { ix.tasks = ts }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Indexer) { ix.logger = l }
}

// WithExcludeGlobs adds exclusion patterns applied to every directory walk.
func WithExcludeGlobs(globs []string) Option {
	return func(ix *Indexer) { ix.exclude = globs }
}

// WithProgress registers a callback invoked after each unit of a directory
// or task run, for progress display.
func WithProgress(fn func(done, total int)) Option {
	return func(ix *Indexer) { ix.progress = fn }
}

func New(st *store.Store, emb embed.Embedder, ch *chunker.Chunker, opts ...Option) (*Indexer, error) {
	sc, err := scanner.New()
	if err != nil {
		return nil, err
	}
	ix := &Indexer{
		store:    st,
		embedder: emb,
		chunker:  ch,
		scanner:  sc,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// IndexTasks indexes every non-cancelled task as a single chunk keyed by the
// task's display ID. Per-task failures are absorbed into the returned stats.
func (ix *Indexer) IndexTasks(ctx context.Context, force bool) (Stats, error) {
	if ix.tasks == nil {
		return Stats{}, fmt.Errorf("no task source configured")
	}
	start := time.Now()

	open, err := ix.tasks.ListOpen(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list tasks: %w", err)
	}

	var stats Stats
	for i, task := range open {
		ix.indexTask(ctx, task, force, &stats)
		if ix.progress != nil {
			ix.progress(i+1, len(open))
		}
	}
	stats.Duration = time.Since(start)

	if err := ix.persistStats(ctx, store.ContentTypeTask, stats.Duration); err != nil {
		return stats, err
	}
	ix.logger.Info("task indexing complete",
		slog.Int("indexed", stats.ItemsIndexed),
		slog.Int("skipped", stats.ItemsSkipped),
		slog.Int("errors", stats.Errors))
	return stats, nil
}

func (ix *Indexer) indexTask(ctx context.Context, task tasks.Task, force bool, stats *Stats) {
	criteria, err := ix.tasks.AcceptanceCriteria(ctx, task.ID)
	if err != nil {
		ix.logger.Warn("failed to load acceptance criteria",
			slog.String("task", task.ID), slog.String("error", err.Error()))
		stats.Errors++
		return
	}

	text := taskText(task, criteria)
	hash := hashContent(text)

	if !force {
		stored, err := ix.store.GetContentHash(ctx, store.ContentTypeTask, task.ID)
		if err == nil && stored == hash {
			stats.ItemsSkipped++
			return
		}
	}

	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		ix.logger.Warn("failed to embed task",
			slog.String("task", task.ID), slog.String("error", err.Error()))
		stats.Errors++
		return
	}

	// Full replace so a shrinking chunk count never leaves stale rows.
	if err := ix.store.DeleteEmbeddings(ctx, store.ContentTypeTask, task.ID); err != nil {
		stats.Errors++
		return
	}

	meta, _ := json.Marshal(map[string]string{"status": task.Status})
	err = ix.store.StoreEmbedding(ctx, store.ContentTypeTask, task.ID, 0,
		chunker.Preview(text, previewLen), hash, vec, string(meta))
	if err != nil {
		ix.logger.Warn("failed to store task embedding",
			slog.String("task", task.ID), slog.String("error", err.Error()))
		stats.Errors++
		return
	}
	stats.ItemsIndexed++
	stats.ChunksCreated++
}

// taskText synthesizes the composite text that represents a task.
func taskText(task tasks.Task, criteria []string) string {
	var b strings.Builder
	b.WriteString(task.Title)
	if task.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(task.Description)
	}
	if len(criteria) > 0 {
		b.WriteString("\n\nAcceptance Criteria:")
		for i, c := range criteria {
			fmt.Fprintf(&b, "\n%d. %s", i+1, c)
		}
	}
	return b.String()
}

// IndexDirectory walks root and indexes every matching file as contentType.
// patterns override the type's extension allowlist when non-empty. A missing
// root fails before any work; every other per-file failure is absorbed.
func (ix *Indexer) IndexDirectory(ctx context.Context, root string, contentType store.ContentType, patterns []string, force bool) (Stats, error) {
	start := time.Now()

	opts := scanner.Options{
		IncludeGlobs: patterns,
		ExcludeGlobs: ix.exclude,
	}
	if len(patterns) == 0 {
		switch contentType {
		case store.ContentTypeCode:
			opts.Extensions = codeExtensions
		case store.ContentTypeDoc:
			opts.Extensions = docExtensions
		}
	}

	files, walkErrs, err := ix.scanner.Scan(ctx, root, opts)
	if err != nil {
		return Stats{}, fmt.Errorf("scan %s: %w", root, err)
	}

	var stats Stats
	stats.Errors += len(walkErrs)
	for _, we := range walkErrs {
		ix.logger.Warn("walk error", slog.String("error", we.Error()))
	}

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		fileStats := ix.indexFile(ctx, f.AbsPath, f.Path, contentType, force)
		stats.Merge(fileStats)
		if ix.progress != nil {
			ix.progress(i+1, len(files))
		}
	}
	stats.Duration = time.Since(start)

	if err := ix.persistStats(ctx, contentType, stats.Duration); err != nil {
		return stats, err
	}
	ix.logger.Info("directory indexing complete",
		slog.String("root", root),
		slog.String("type", string(contentType)),
		slog.Int("indexed", stats.ItemsIndexed),
		slog.Int("skipped", stats.ItemsSkipped),
		slog.Int("chunks", stats.ChunksCreated),
		slog.Int("errors", stats.Errors))
	return stats, nil
}

// IndexFile indexes a single file, using its path as the content ID.
func (ix *Indexer) IndexFile(ctx context.Context, path string, contentType store.ContentType, force bool) (Stats, error) {
	stats := ix.indexFile(ctx, path, filepath.ToSlash(path), contentType, force)
	return stats, nil
}

func (ix *Indexer) indexFile(ctx context.Context, absPath, id string, contentType store.ContentType, force bool) Stats {
	var stats Stats

	data, err := os.ReadFile(absPath)
	if err != nil {
		ix.logger.Warn("unreadable file", slog.String("path", id), slog.String("error", err.Error()))
		stats.Errors++
		return stats
	}
	if isBinary(data) {
		stats.ItemsSkipped++
		return stats
	}

	text := string(data)
	hash := hashContent(text)

	if !force {
		stored, err := ix.store.GetContentHash(ctx, contentType, id)
		if err == nil && stored == hash {
			stats.ItemsSkipped++
			return stats
		}
	}

	ext := strings.ToLower(filepath.Ext(id))
	var chunks []chunker.Chunk
	if contentType == store.ContentTypeCode {
		chunks = ix.chunker.ChunkCode(text, ext)
	} else {
		chunks = ix.chunker.Chunk(text)
	}
	if len(chunks) == 0 {
		stats.ItemsSkipped++
		return stats
	}

	vectors := ix.embedChunks(ctx, id, chunks, &stats)
	anyEmbedded := false
	for _, v := range vectors {
		if v != nil {
			anyEmbedded = true
			break
		}
	}
	if !anyEmbedded {
		// Keep whatever was stored before rather than replacing it with
		// nothing.
		return stats
	}

	// Chunk count may shrink between runs, so replace wholesale.
	if err := ix.store.DeleteEmbeddings(ctx, contentType, id); err != nil {
		ix.logger.Warn("failed to clear previous chunks",
			slog.String("path", id), slog.String("error", err.Error()))
		stats.Errors++
		return stats
	}

	stored := 0
	for i, chunk := range chunks {
		if vectors[i] == nil {
			continue
		}
		meta, _ := json.Marshal(map[string]any{
			"path":       id,
			"ext":        ext,
			"line_start": chunk.LineStart,
			"line_end":   chunk.LineEnd,
			"start_char": chunk.StartChar,
			"end_char":   chunk.EndChar,
		})
		err := ix.store.StoreEmbedding(ctx, contentType, id, chunk.Index,
			chunker.Preview(chunk.Text, previewLen), hash, vectors[i], string(meta))
		if err != nil {
			ix.logger.Warn("failed to store chunk",
				slog.String("path", id), slog.Int("chunk", chunk.Index),
				slog.String("error", err.Error()))
			stats.Errors++
			continue
		}
		stored++
	}

	stats.ChunksCreated += stored
	if stored > 0 {
		stats.ItemsIndexed++
	}
	return stats
}

// embedChunks embeds a unit's chunks, batch first, retrying chunk by chunk
// on batch failure so one bad chunk never sinks its siblings. The returned
// slice is parallel to chunks; failed entries are nil.
func (ix *Indexer) embedChunks(ctx context.Context, id string, chunks []chunker.Chunk, stats *Stats) [][]float32 {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	if vectors, err := ix.embedder.EmbedBatch(ctx, texts); err == nil {
		return vectors
	}

	vectors := make([][]float32, len(chunks))
	for i, text := range texts {
		vec, err := ix.embedder.Embed(ctx, text)
		if err != nil {
			ix.logger.Warn("failed to embed chunk",
				slog.String("path", id), slog.Int("chunk", chunks[i].Index),
				slog.String("error", err.Error()))
			stats.Errors++
			continue
		}
		vectors[i] = vec
	}
	return vectors
}

// persistStats refreshes the per-type aggregate row from current store
// contents.
func (ix *Indexer) persistStats(ctx context.Context, contentType store.ContentType, duration time.Duration) error {
	items, err := ix.store.CountItems(ctx, contentType)
	if err != nil {
		return err
	}
	chunks, err := ix.store.Count(ctx, contentType)
	if err != nil {
		return err
	}
	return ix.store.UpdateStats(ctx, contentType, items, chunks, duration)
}

func hashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// isBinary applies the null-byte heuristic to the head of the content.
func isBinary(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.IndexByte(head, 0) >= 0
}
