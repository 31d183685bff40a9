package store

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/glebarez/go-sqlite"
)

// SQLite is a Provider backed by a SQLite database, so cached generations
// survive process restarts. Entries live in a single table keyed by
// (generation, key); generation tags are tracked in their own table so that
// an opened-but-empty generation is still listed.
type SQLite struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLite creates a store with the given filename as the db.
// If the file name is empty, a new in-memory db is opened.
func NewSQLite(filename string) (*SQLite, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS generation (tag TEXT PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS entry (
			generation TEXT,
			key TEXT,
			value BLOB,
			PRIMARY KEY (generation, key)
		)`,
		`CREATE INDEX IF NOT EXISTS entry_generation_idx ON entry (generation)`,
		`PRAGMA journal_mode=WAL`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &SQLite{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

func (s *SQLite) Open(ctx context.Context, tag string) (Handle, error) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO generation (tag) VALUES (?)", tag)
	if err != nil {
		return nil, err
	}
	return &sqliteHandle{store: s, tag: tag}, nil
}

func (s *SQLite) Generations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT tag FROM generation")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tags := make([]string, 0)
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return tags, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (s *SQLite) DeleteGeneration(ctx context.Context, tag string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM entry WHERE generation = ?", tag); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM generation WHERE tag = ?", tag)
	return err
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

type sqliteHandle struct {
	store *SQLite
	tag   string
}

func (h *sqliteHandle) Match(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := h.store.db.QueryRowContext(ctx,
		"SELECT value FROM entry WHERE generation = ? AND key = ?",
		h.tag, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (h *sqliteHandle) Put(ctx context.Context, key string, value []byte) error {
	h.store.writeMutex.Lock()
	defer h.store.writeMutex.Unlock()
	_, err := h.store.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO entry (generation, key, value) VALUES (?, ?, ?)",
		h.tag, key, value)
	return err
}

func (h *sqliteHandle) Keys(ctx context.Context) ([]string, error) {
	rows, err := h.store.db.QueryContext(ctx,
		"SELECT key FROM entry WHERE generation = ?", h.tag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
