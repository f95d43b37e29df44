package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO
)

// currentSchemaVersion is bumped whenever the schema changes.
const currentSchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER NOT NULL,
	applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS embeddings (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	content_type    TEXT NOT NULL,
	content_id      TEXT NOT NULL,
	chunk_index     INTEGER NOT NULL DEFAULT 0,
	content_preview TEXT,
	content_hash    TEXT NOT NULL,
	embedding       BLOB NOT NULL,
	metadata        TEXT,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL,
	UNIQUE(content_type, content_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_embeddings_type ON embeddings(content_type);

CREATE TABLE IF NOT EXISTS vector_stats (
	content_type      TEXT NOT NULL UNIQUE,
	total_items       INTEGER NOT NULL,
	total_chunks      INTEGER NOT NULL,
	last_indexed_at   TEXT NOT NULL,
	index_duration_ms INTEGER NOT NULL
);
`

// Store is the SQLite-backed vector store. It provides no locking beyond the
// underlying engine's per-statement guarantees; serializing concurrent
// indexing runs against one store is the caller's responsibility.
type Store struct {
	db   *sql.DB
	path string
	dims int
}

// Open opens or creates a vector store at the given path. An empty path opens
// an in-memory store, which tests rely on. dims is the embedding dimension
// every stored vector must have.
func Open(path string, dims int) (*Store, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dims)
	}

	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer prevents SQLITE_BUSY contention between statements.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Pragmas must be set via statements; modernc.org/sqlite ignores most
	// DSN parameters.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db, path: path, dims: dims}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate applies the schema for fresh databases and records the version.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.Exec(
			"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
			currentSchemaVersion, time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	case version > currentSchemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	return nil
}

// Dimensions returns the embedding dimension this store was opened with.
func (s *Store) Dimensions() int { return s.dims }

// Path returns the database file path, empty for in-memory stores.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
