// Package store persists chunk embeddings and per-type aggregate statistics
// in SQLite. Vectors are stored as fixed-width binary blobs; search decodes
// fresh from storage on every call, there is no in-memory vector cache.
package store

import (
	"errors"
	"fmt"
	"time"
)

// ContentType identifies the kind of content a record belongs to.
type ContentType string

const (
	ContentTypeTask ContentType = "task"
	ContentTypeCode ContentType = "code"
	ContentTypeDoc  ContentType = "doc"
)

// AllContentTypes lists every valid content type.
var AllContentTypes = []ContentType{ContentTypeTask, ContentTypeCode, ContentTypeDoc}

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeTask, ContentTypeCode, ContentTypeDoc:
		return true
	}
	return false
}

// ParseContentType converts a string to a ContentType.
func ParseContentType(s string) (ContentType, error) {
	t := ContentType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown content type: %q", s)
	}
	return t, nil
}

// EmbeddingRecord is one stored chunk embedding, keyed by
// (content_type, content_id, chunk_index).
type EmbeddingRecord struct {
	ID             int64
	ContentType    ContentType
	ContentID      string
	ChunkIndex     int
	ContentPreview string
	// ContentHash is the hash of the entire original content; it is
	// authoritative only at ChunkIndex 0.
	ContentHash string
	Embedding   []float32
	// Metadata is opaque serialized data supplied by the indexer.
	Metadata  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VectorStats is the persisted per-type aggregate row, replaced wholesale
// after each indexing run.
type VectorStats struct {
	ContentType     ContentType
	TotalItems      int
	TotalChunks     int
	LastIndexedAt   time.Time
	IndexDurationMS int64
}

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("content not found")

// DimensionError reports an attempt to store a vector whose length does not
// match the store's configured dimension. Nothing is written.
type DimensionError struct {
	Expected int
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
