// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/aostock-tui/internal/agent"
	"github.com/jeranaias/aostock-tui/internal/config"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when a thread is not in the cache.
	ErrNotFound = errors.New("thread not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store is closed")
)

// DefaultListLimit matches the page size used when searching remote threads.
const DefaultListLimit = 100

// =============================================================================
// THREAD META
// =============================================================================

// ThreadMeta is the cached summary of one remote thread.
type ThreadMeta struct {
	ID          string
	AssistantID string
	Title       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FromThreads converts remote threads of assistantID into cache rows.
func FromThreads(assistantID string, threads []agent.Thread) []ThreadMeta {
	out := make([]ThreadMeta, 0, len(threads))
	for _, t := range threads {
		out = append(out, ThreadMeta{
			ID:          t.ThreadID,
			AssistantID: assistantID,
			Title:       t.Title(),
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		})
	}
	return out
}

// =============================================================================
// THREAD STORE
// =============================================================================

// ThreadStore caches thread summaries so the history list renders before
// the server answers.
type ThreadStore struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS threads (
	id           TEXT PRIMARY KEY,
	assistant_id TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_threads_assistant_updated
	ON threads (assistant_id, updated_at DESC);
`

// DefaultPath returns ~/.aostock/threads.db.
func DefaultPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "threads.db"), nil
}

// Open opens (creating if needed) the cache at path.
func Open(path string) (*ThreadStore, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &ThreadStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *ThreadStore) Path() string { return s.path }

// Close closes the database.
func (s *ThreadStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *ThreadStore) conn() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	return s.db, nil
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const upsertSQL = `
INSERT INTO threads (id, assistant_id, title, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	assistant_id = excluded.assistant_id,
	title        = excluded.title,
	updated_at   = excluded.updated_at`

func upsert(ctx context.Context, e execer, t ThreadMeta) error {
	if t.ID == "" {
		return errors.New("thread id is empty")
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	_, err := e.ExecContext(ctx, upsertSQL,
		t.ID, t.AssistantID, t.Title, t.CreatedAt.UnixNano(), t.UpdatedAt.UnixNano())
	return err
}

// Upsert inserts or updates a thread. CreatedAt is kept on update.
func (s *ThreadStore) Upsert(ctx context.Context, t ThreadMeta) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if err := upsert(ctx, db, t); err != nil {
		return fmt.Errorf("upsert thread %s: %w", t.ID, err)
	}
	return nil
}

// Delete removes a thread. Deleting an unknown thread returns ErrNotFound.
func (s *ThreadStore) Delete(ctx context.Context, id string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete thread %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Replace makes the cached threads of assistantID exactly threads, in one
// transaction. It is used after a successful remote search.
func (s *ThreadStore) Replace(ctx context.Context, assistantID string, threads []ThreadMeta) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM threads WHERE assistant_id = ?`, assistantID); err != nil {
		return fmt.Errorf("clear threads: %w", err)
	}
	for _, t := range threads {
		t.AssistantID = assistantID
		if err := upsert(ctx, tx, t); err != nil {
			return fmt.Errorf("replace thread %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

const selectCols = `id, assistant_id, title, created_at, updated_at`

func scanThread(row interface{ Scan(...interface{}) error }) (ThreadMeta, error) {
	var t ThreadMeta
	var created, updated int64
	if err := row.Scan(&t.ID, &t.AssistantID, &t.Title, &created, &updated); err != nil {
		return ThreadMeta{}, err
	}
	t.CreatedAt = time.Unix(0, created)
	t.UpdatedAt = time.Unix(0, updated)
	return t, nil
}

// Get returns one thread.
func (s *ThreadStore) Get(ctx context.Context, id string) (ThreadMeta, error) {
	db, err := s.conn()
	if err != nil {
		return ThreadMeta{}, err
	}
	t, err := scanThread(db.QueryRowContext(ctx, `SELECT `+selectCols+` FROM threads WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ThreadMeta{}, ErrNotFound
	}
	return t, err
}

// List returns the threads of assistantID, most recently updated first.
// A limit <= 0 uses DefaultListLimit.
func (s *ThreadStore) List(ctx context.Context, assistantID string, limit int) ([]ThreadMeta, error) {
	return s.query(ctx, `SELECT `+selectCols+` FROM threads
		WHERE assistant_id = ?
		ORDER BY updated_at DESC, id
		LIMIT ?`, assistantID, normalizeLimit(limit))
}

// Search returns threads of assistantID whose title contains query,
// case-insensitively, most recently updated first.
func (s *ThreadStore) Search(ctx context.Context, assistantID, query string, limit int) ([]ThreadMeta, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx, assistantID, limit)
	}
	return s.query(ctx, `SELECT `+selectCols+` FROM threads
		WHERE assistant_id = ? AND title LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC, id
		LIMIT ?`, assistantID, "%"+escapeLike(query)+"%", normalizeLimit(limit))
}

func (s *ThreadStore) query(ctx context.Context, q string, args ...interface{}) ([]ThreadMeta, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ThreadMeta
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
