// Package sqlstore keeps hash records in a SQLite table. Each commit is one
// transaction.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"sync"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/store"
)

//go:embed schema.sql
var schemaSQL string

const (
	insertIgnore = `INSERT OR IGNORE INTO hash_fields (key, field, value) VALUES (?, ?, ?)`
	upsert       = `INSERT INTO hash_fields (key, field, value) VALUES (?, ?, ?)
		ON CONFLICT (key, field) DO UPDATE SET value = excluded.value`
	setMeta = `INSERT INTO meta (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value`
)

// Store is a SQLite-backed store.Store.
type Store struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) connect() error {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return errors.Wrap(err, "sqlstore: open")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return errors.Wrap(err, "sqlstore: ping")
	}
	// single writer avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return errors.Wrapf(err, "sqlstore: %s", pragma)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return errors.Wrap(err, "sqlstore: apply schema")
	}

	s.mu.Lock()
	old := s.db
	s.db = db
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

func (s *Store) conn() *sql.DB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db
}

func (s *Store) Commit(ctx context.Context, c store.Commit) (err error) {
	if err := c.Validate(); err != nil {
		return err
	}
	tx, err := s.conn().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlstore: begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ignore, err := tx.PrepareContext(ctx, insertIgnore)
	if err != nil {
		return errors.Wrap(err, "sqlstore: prepare")
	}
	defer ignore.Close()
	over, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return errors.Wrap(err, "sqlstore: prepare")
	}
	defer over.Close()

	for _, m := range c.Sorted() {
		stmt := over
		if m.Policy == store.SetIfAbsent {
			stmt = ignore
		}
		if _, err = stmt.ExecContext(ctx, m.Key, m.Field, m.Value); err != nil {
			return errors.Wrapf(err, "sqlstore: write %s/%s", m.Key, m.Field)
		}
	}
	if c.Checkpoint != nil {
		if _, err = tx.ExecContext(ctx, setMeta, store.CheckpointKey, store.FormatCheckpoint(*c.Checkpoint)); err != nil {
			return errors.Wrap(err, "sqlstore: write checkpoint")
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "sqlstore: commit")
	}
	return nil
}

func (s *Store) Checkpoint(ctx context.Context) (uint64, bool, error) {
	var raw string
	err := s.conn().QueryRowContext(ctx, `SELECT value FROM meta WHERE name = ?`, store.CheckpointKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "sqlstore: read checkpoint")
	}
	h, err := store.ParseCheckpoint(raw)
	return h, err == nil, err
}

func (s *Store) Get(ctx context.Context, key, field string) (string, bool, error) {
	var v string
	err := s.conn().QueryRowContext(ctx, `SELECT value FROM hash_fields WHERE key = ? AND field = ?`, key, field).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "sqlstore: get %s/%s", key, field)
	}
	return v, true, nil
}

func (s *Store) Reconnect(context.Context) error { return s.connect() }

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
