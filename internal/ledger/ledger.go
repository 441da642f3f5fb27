// Package ledger provides a SQLite-backed operations journal for the vector
// store. Every upsert and delete that reaches a backend is recorded locally
// so operators can audit what was written where, and when, without querying
// the backend itself. Entries are persisted across restarts.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Operation identifies the kind of mutation recorded in the journal.
type Operation string

const (
	// OpUpsert records documents written to a backend.
	OpUpsert Operation = "upsert"
	// OpDelete records chunks removed from a backend.
	OpDelete Operation = "delete"
)

// Entry is a single journaled mutation.
type Entry struct {
	// Op is the kind of mutation.
	Op Operation
	// Namespace is the backend namespace the mutation targeted.
	Namespace string
	// DocumentID is the affected document, when the mutation is scoped to
	// one. Empty for bulk operations.
	DocumentID string
	// ChunkCount is the number of chunks written (upsert only; 0 for delete).
	ChunkCount int
	// Detail is a short human-readable description of the mutation scope
	// (e.g. "by-ids n=3", "delete-all").
	Detail string
	// CreatedAt is when the entry was persisted.
	CreatedAt time.Time
}

// Journal persists and retrieves mutation entries. Implementations must be
// safe for concurrent use.
type Journal interface {
	// Record persists a single entry.
	Record(ctx context.Context, e Entry) error
	// Recent returns the most recent n entries across all namespaces,
	// ordered newest-first for display.
	Recent(ctx context.Context, n int) ([]Entry, error)
	// Close releases any resources held by the journal.
	Close() error
}

// SQLiteJournal is a Journal backed by a local SQLite database.
type SQLiteJournal struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the operations journal database.
// It resolves to ~/.vecstore/ledger.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("ledger: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".vecstore")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("ledger: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "ledger.db"), nil
}

// Open opens (or creates) a SQLiteJournal at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteJournal, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	j := &SQLiteJournal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// migrate creates the schema if it does not already exist.
func (j *SQLiteJournal) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS operations (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    op           TEXT    NOT NULL CHECK(op IN ('upsert','delete')),
    namespace    TEXT    NOT NULL,
    document_id  TEXT    NOT NULL DEFAULT '',
    chunk_count  INTEGER NOT NULL DEFAULT 0,
    detail       TEXT    NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_operations_created
    ON operations (created_at);
`
	if _, err := j.db.Exec(ddl); err != nil {
		return fmt.Errorf("ledger: migrate: %w", err)
	}
	return nil
}

// Record persists a single entry. A zero CreatedAt is stamped with the
// current time.
func (j *SQLiteJournal) Record(ctx context.Context, e Entry) error {
	ts := e.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	const q = `INSERT INTO operations (op, namespace, document_id, chunk_count, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := j.db.ExecContext(ctx, q, string(e.Op), e.Namespace, e.DocumentID, e.ChunkCount, e.Detail, ts.Unix()); err != nil {
		return fmt.Errorf("ledger: record: %w", err)
	}
	return nil
}

// Recent returns the most recent n entries, newest-first.
func (j *SQLiteJournal) Recent(ctx context.Context, n int) ([]Entry, error) {
	const q = `
SELECT op, namespace, document_id, chunk_count, detail, created_at
FROM   operations
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := j.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("ledger: recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		var op string
		if err := rows.Scan(&op, &e.Namespace, &e.DocumentID, &e.ChunkCount, &e.Detail, &ts); err != nil {
			return nil, fmt.Errorf("ledger: recent scan: %w", err)
		}
		e.Op = Operation(op)
		e.CreatedAt = time.Unix(ts, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: recent rows: %w", err)
	}
	return entries, nil
}

// Close releases the database connection pool.
func (j *SQLiteJournal) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("ledger: close: %w", err)
	}
	return nil
}
