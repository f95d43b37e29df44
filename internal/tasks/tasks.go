// Package tasks provides read-only access to the host project's task
// database. The indexer consumes it through the TaskSource interface so a
// different backing store can be swapped in without touching indexing code.
package tasks

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Task is one indexable task record.
type Task struct {
	ID          string // display identifier, e.g. "#7"
	Title       string
	Description string
	Status      string
}

// TaskSource lists open tasks and their acceptance criteria.
type TaskSource interface {
	// ListOpen returns all non-cancelled tasks.
	ListOpen(ctx context.Context) ([]Task, error)

	// AcceptanceCriteria returns the criteria for a task by display ID,
	// in definition order. A task without criteria yields an empty slice.
	AcceptanceCriteria(ctx context.Context, taskID string) ([]string, error)

	Close() error
}

// SQLiteSource reads tasks from a SQLite database opened read-only.
type SQLiteSource struct {
	db *sql.DB
}

var _ TaskSource = (*SQLiteSource)(nil)

// OpenSQLite opens the task database at path. The connection is read-only;
// this package never writes to the host project's data.
func OpenSQLite(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open task db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open task db %s: %w", path, err)
	}
	return &SQLiteSource{db: db}, nil
}

func (s *SQLiteSource) ListOpen(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT display_id, title, COALESCE(description, ''), status
		 FROM tasks
		 WHERE status != 'cancelled'
		 ORDER BY display_id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteSource) AcceptanceCriteria(ctx context.Context, taskID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ac.criterion
		 FROM acceptance_criteria ac
		 JOIN tasks t ON t.id = ac.task_id
		 WHERE t.display_id = ?
		 ORDER BY ac.position`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list criteria for %s: %w", taskID, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan criterion: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
