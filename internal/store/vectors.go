package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// StoreEmbedding inserts or updates the record keyed by
// (contentType, contentID, chunkIndex). Vector length is validated before any
// write; on update created_at is preserved and updated_at bumped.
func (s *Store) StoreEmbedding(ctx context.Context, contentType ContentType, contentID string, chunkIndex int, preview, hash string, vector []float32, metadata string) error {
	if !contentType.Valid() {
		return fmt.Errorf("unknown content type: %q", contentType)
	}
	if len(vector) != s.dims {
		return &DimensionError{Expected: s.dims, Got: len(vector)}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings
			(content_type, content_id, chunk_index, content_preview, content_hash, embedding, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_type, content_id, chunk_index) DO UPDATE SET
			content_preview = excluded.content_preview,
			content_hash    = excluded.content_hash,
			embedding       = excluded.embedding,
			metadata        = excluded.metadata,
			updated_at      = excluded.updated_at`,
		string(contentType), contentID, chunkIndex, preview, hash, encodeVector(vector), metadata, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	return nil
}

// GetContentHash returns the content hash recorded at chunk_index 0 for the
// given item, or the empty string when the item has never been indexed.
func (s *Store) GetContentHash(ctx context.Context, contentType ContentType, contentID string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT content_hash FROM embeddings WHERE content_type = ? AND content_id = ? AND chunk_index = 0",
		string(contentType), contentID,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get content hash: %w", err)
	}
	return hash, nil
}

// GetEmbedding returns a single record, decoding its vector.
// Returns ErrNotFound when the key does not exist.
func (s *Store) GetEmbedding(ctx context.Context, contentType ContentType, contentID string, chunkIndex int) (*EmbeddingRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, content_type, content_id, chunk_index, content_preview, content_hash, embedding, metadata, created_at, updated_at
		FROM embeddings
		WHERE content_type = ? AND content_id = ? AND chunk_index = ?`,
		string(contentType), contentID, chunkIndex,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}
	return rec, nil
}

// GetAllEmbeddings returns every stored record with its decoded vector,
// ordered by (content_type, content_id, chunk_index). With no types given,
// all records are returned. This is the full candidate pool for brute-force
// search and is O(stored count) by design.
func (s *Store) GetAllEmbeddings(ctx context.Context, types ...ContentType) ([]*EmbeddingRecord, error) {
	query := `
		SELECT id, content_type, content_id, chunk_index, content_preview, content_hash, embedding, metadata, created_at, updated_at
		FROM embeddings`
	var args []any
	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += " WHERE content_type IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY content_type, content_id, chunk_index"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var records []*EmbeddingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan embedding row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating embeddings: %w", err)
	}
	return records, nil
}

// DeleteEmbeddings removes all chunks stored for one item.
func (s *Store) DeleteEmbeddings(ctx context.Context, contentType ContentType, contentID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM embeddings WHERE content_type = ? AND content_id = ?",
		string(contentType), contentID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}
	return nil
}

// DeleteAllByType removes every record of the given type, including its
// stats row.
func (s *Store) DeleteAllByType(ctx context.Context, contentType ContentType) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM embeddings WHERE content_type = ?", string(contentType)); err != nil {
		return fmt.Errorf("failed to delete embeddings by type: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM vector_stats WHERE content_type = ?", string(contentType)); err != nil {
		return fmt.Errorf("failed to delete stats by type: %w", err)
	}
	return nil
}

// Count returns the number of stored embedding rows, optionally filtered by
// type.
func (s *Store) Count(ctx context.Context, types ...ContentType) (int, error) {
	query := "SELECT COUNT(*) FROM embeddings"
	var args []any
	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += " WHERE content_type IN (" + strings.Join(placeholders, ", ") + ")"
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return count, nil
}

// CountItems returns the number of distinct content units of a type.
func (s *Store) CountItems(ctx context.Context, contentType ContentType) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT content_id) FROM embeddings WHERE content_type = ?",
		string(contentType)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

// UpdateStats replaces the per-type aggregate row with caller-computed
// totals.
func (s *Store) UpdateStats(ctx context.Context, contentType ContentType, items, chunks int, duration time.Duration) error {
	if !contentType.Valid() {
		return fmt.Errorf("unknown content type: %q", contentType)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vector_stats (content_type, total_items, total_chunks, last_indexed_at, index_duration_ms)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(content_type) DO UPDATE SET
			total_items       = excluded.total_items,
			total_chunks      = excluded.total_chunks,
			last_indexed_at   = excluded.last_indexed_at,
			index_duration_ms = excluded.index_duration_ms`,
		string(contentType), items, chunks, time.Now().UTC().Format(time.RFC3339), duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}
	return nil
}

// GetStats returns the aggregate row for one content type, or ErrNotFound if
// that type has never been indexed.
func (s *Store) GetStats(ctx context.Context, contentType ContentType) (*VectorStats, error) {
	var (
		stats     VectorStats
		ctype     string
		indexedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT content_type, total_items, total_chunks, last_indexed_at, index_duration_ms FROM vector_stats WHERE content_type = ?",
		string(contentType),
	).Scan(&ctype, &stats.TotalItems, &stats.TotalChunks, &indexedAt, &stats.IndexDurationMS)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	stats.ContentType = ContentType(ctype)
	stats.LastIndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
	return &stats, nil
}

// GetAllStats returns the aggregate rows for every indexed content type.
func (s *Store) GetAllStats(ctx context.Context) ([]*VectorStats, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT content_type, total_items, total_chunks, last_indexed_at, index_duration_ms FROM vector_stats ORDER BY content_type",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var all []*VectorStats
	for rows.Next() {
		var (
			stats     VectorStats
			ctype     string
			indexedAt string
		)
		if err := rows.Scan(&ctype, &stats.TotalItems, &stats.TotalChunks, &indexedAt, &stats.IndexDurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.ContentType = ContentType(ctype)
		stats.LastIndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
		all = append(all, &stats)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stats: %w", err)
	}
	return all, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanRecord.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*EmbeddingRecord, error) {
	var (
		rec       EmbeddingRecord
		ctype     string
		preview   sql.NullString
		metadata  sql.NullString
		blob      []byte
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&rec.ID, &ctype, &rec.ContentID, &rec.ChunkIndex, &preview, &rec.ContentHash, &blob, &metadata, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	vector, err := decodeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", rec.ID, err)
	}

	rec.ContentType = ContentType(ctype)
	rec.ContentPreview = preview.String
	rec.Metadata = metadata.String
	rec.Embedding = vector
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &rec, nil
}
