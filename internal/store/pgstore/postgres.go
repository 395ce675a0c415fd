// Package pgstore keeps hash records in Postgres. Each commit is one pgx
// transaction.
package pgstore

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS hash_fields (
	key   TEXT NOT NULL,
	field TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (key, field)
);
CREATE TABLE IF NOT EXISTS meta (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// Store is a Postgres-backed store.Store.
type Store struct {
	connStr string

	mu   sync.Mutex
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open connects to connStr and creates the tables if needed.
func Open(ctx context.Context, connStr string) (*Store, error) {
	s := &Store{connStr: connStr}
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) connect(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(s.connStr)
	if err != nil {
		return errors.Wrap(err, "pgstore: parse config")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "pgstore: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return errors.Wrap(err, "pgstore: ping")
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return errors.Wrap(err, "pgstore: create tables")
	}
	s.mu.Lock()
	old := s.pool
	s.pool = pool
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

func (s *Store) conn() *pgxpool.Pool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool
}

func (s *Store) Commit(ctx context.Context, c store.Commit) error {
	if err := c.Validate(); err != nil {
		return err
	}
	muts := c.Sorted()
	err := pgx.BeginFunc(ctx, s.conn(), func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, m := range muts {
			if m.Policy == store.SetIfAbsent {
				batch.Queue(`INSERT INTO hash_fields (key, field, value) VALUES ($1, $2, $3)
					ON CONFLICT (key, field) DO NOTHING`, m.Key, m.Field, m.Value)
			} else {
				batch.Queue(`INSERT INTO hash_fields (key, field, value) VALUES ($1, $2, $3)
					ON CONFLICT (key, field) DO UPDATE SET value = EXCLUDED.value`, m.Key, m.Field, m.Value)
			}
		}
		if c.Checkpoint != nil {
			batch.Queue(`INSERT INTO meta (name, value) VALUES ($1, $2)
				ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`,
				store.CheckpointKey, store.FormatCheckpoint(*c.Checkpoint))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	return errors.Wrapf(err, "pgstore: commit %d mutations", len(muts))
}

func (s *Store) Checkpoint(ctx context.Context) (uint64, bool, error) {
	var raw string
	err := s.conn().QueryRow(ctx, `SELECT value FROM meta WHERE name = $1`, store.CheckpointKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "pgstore: read checkpoint")
	}
	h, err := store.ParseCheckpoint(raw)
	return h, err == nil, err
}

func (s *Store) Get(ctx context.Context, key, field string) (string, bool, error) {
	var v string
	err := s.conn().QueryRow(ctx, `SELECT value FROM hash_fields WHERE key = $1 AND field = $2`, key, field).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "pgstore: get %s/%s", key, field)
	}
	return v, true, nil
}

func (s *Store) Reconnect(ctx context.Context) error { return s.connect(ctx) }

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

// reset truncates both tables. Tests only.
func (s *Store) reset(ctx context.Context) error {
	_, err := s.conn().Exec(ctx, `TRUNCATE hash_fields, meta`)
	return err
}
