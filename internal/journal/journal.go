// Package journal persists relocation attempts in a SQLite database so that
// failures can be listed and re-driven after the fact.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	oerrors "github.com/ickyicky/folder-observer/internal/errors"
)

// DefaultMaxEntries caps the table; the oldest rows are trimmed on insert.
const DefaultMaxEntries = 10000

const schemaVersion = 1

// Entry is one recorded relocation attempt.
type Entry struct {
	ID          int64  `json:"id"`
	EventID     string `json:"event_id"`
	Origin      string `json:"origin"`
	Source      string `json:"source"`
	Destination string `json:"destination,omitempty"`
	Category    string `json:"category,omitempty"`
	// Resolution is where the category came from (seed, cache, remote, fallback).
	Resolution string `json:"resolution,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	// Failed marks attempts whose file is still at Source and can be re-driven.
	Failed    bool      `json:"failed"`
	Retried   bool      `json:"retried"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a SQLite-backed journal. It is safe for concurrent use.
type Store struct {
	db         *sql.DB
	path       string
	maxEntries int

	mu     sync.Mutex
	closed bool
}

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries overrides DefaultMaxEntries. Zero or less disables trimming.
func WithMaxEntries(n int) Option {
	return func(s *Store) { s.maxEntries = n }
}

// Open opens or creates the journal at path.
func Open(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, journalError("create journal directory", err).WithDetail("path", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, journalError("open journal", err).WithDetail("path", path)
	}

	// Single writer to prevent lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// DSN params may be ignored by modernc.org/sqlite, so set pragmas directly.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, journalError("set pragma", err).WithDetail("path", path)
		}
	}

	s := &Store{db: db, path: path, maxEntries: DefaultMaxEntries}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, journalError("initialize schema", err).WithDetail("path", path)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS relocations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL,
		origin TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		destination TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		resolution TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		failed INTEGER NOT NULL DEFAULT 0,
		retried INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_relocations_failed ON relocations(failed, retried);
	CREATE INDEX IF NOT EXISTS idx_relocations_source ON relocations(source);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, schemaVersion)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Record inserts e and returns its row ID. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO relocations
			(event_id, origin, source, destination, category, resolution, status, error, failed, retried, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.EventID, e.Origin, e.Source, e.Destination, e.Category, e.Resolution, e.Status, e.Error,
		boolInt(e.Failed), boolInt(e.Retried), e.CreatedAt.UnixNano())
	if err != nil {
		return 0, journalError("insert entry", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, journalError("read entry id", err)
	}

	if s.maxEntries > 0 {
		_, err = s.db.ExecContext(ctx, `
			DELETE FROM relocations
			WHERE id NOT IN (
				SELECT id FROM relocations
				ORDER BY id DESC
				LIMIT ?
			)
		`, s.maxEntries)
		if err != nil {
			return id, journalError("trim journal", err)
		}
	}
	return id, nil
}

const selectColumns = `id, event_id, origin, source, destination, category, resolution, status, error, failed, retried, created_at`

// List returns the newest entries first. limit <= 0 returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM relocations ORDER BY id DESC LIMIT ?`, sqlLimit(limit))
}

// Failed returns failed entries not yet retried, oldest first.
func (s *Store) Failed(ctx context.Context, limit int) ([]Entry, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM relocations
		WHERE failed = 1 AND retried = 0
		ORDER BY id ASC LIMIT ?`, sqlLimit(limit))
}

// Get returns the entry with the given ID.
func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	entries, err := s.query(ctx, `SELECT `+selectColumns+` FROM relocations WHERE id = ?`, id)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, oerrors.New(oerrors.ErrCodeInvalidInput, fmt.Sprintf("journal entry %d not found", id), nil).
			WithSuggestion("List entries with 'folder-observer history'")
	}
	return entries[0], nil
}

// MarkRetried flags entries as re-driven so Failed no longer returns them.
func (s *Store) MarkRetried(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.check(); err != nil {
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx, `UPDATE relocations SET retried = 1 WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return journalError("mark retried", err)
	}
	return nil
}

// Counts returns the number of entries per status.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM relocations GROUP BY status`)
	if err != nil {
		return nil, journalError("count entries", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, journalError("scan row", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, journalError("count entries", err)
	}
	return counts, nil
}

// Close checkpoints the WAL and closes the database. It is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, journalError("query entries", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var failed, retried int
		var created int64
		if err := rows.Scan(&e.ID, &e.EventID, &e.Origin, &e.Source, &e.Destination, &e.Category,
			&e.Resolution, &e.Status, &e.Error, &failed, &retried, &created); err != nil {
			return nil, journalError("scan row", err)
		}
		e.Failed = failed != 0
		e.Retried = retried != 0
		e.CreatedAt = time.Unix(0, created)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, journalError("query entries", err)
	}
	return entries, nil
}

func (s *Store) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return journalError("journal is closed", nil)
	}
	return nil
}

func journalError(msg string, cause error) *oerrors.ObserverError {
	return oerrors.New(oerrors.ErrCodeJournalFailed, msg, cause)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// sqlLimit maps "no limit" to SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
