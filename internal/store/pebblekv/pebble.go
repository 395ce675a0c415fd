// Package pebblekv maps hash records onto a Pebble keyspace. A commit is one
// indexed batch so set-if-absent sees writes made earlier in the same commit.
package pebblekv

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"

	pebblestore "github.com/mikedotexe/fastnear-compact-indexer/internal/storage/pebble"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/store"
)

var (
	recordPrefix  = []byte("kv/h/")
	checkpointKey = []byte("kv/" + store.CheckpointKey)
)

// Store is a Pebble-backed store.Store. The DB is owned by the caller.
type Store struct {
	db *pebblestore.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an open database.
func New(db *pebblestore.DB) *Store {
	return &Store{db: db}
}

// fieldKey is kv/h/{key}\x00{field}. Keys never contain NUL.
func fieldKey(key, field string) []byte {
	k := make([]byte, 0, len(recordPrefix)+len(key)+1+len(field))
	k = append(k, recordPrefix...)
	k = append(k, key...)
	k = append(k, 0)
	return append(k, field...)
}

func (s *Store) Commit(ctx context.Context, c store.Commit) error {
	if err := c.Validate(); err != nil {
		return err
	}
	b := s.db.NewIndexedBatch()
	defer b.Close()
	for _, m := range c.Sorted() {
		k := fieldKey(m.Key, m.Field)
		if m.Policy == store.SetIfAbsent {
			_, closer, err := b.Get(k)
			if err == nil {
				_ = closer.Close()
				continue
			}
			if !errors.Is(err, pebble.ErrNotFound) {
				return errors.Wrapf(err, "pebblekv: probe %s/%s", m.Key, m.Field)
			}
		}
		if err := b.Set(k, []byte(m.Value), nil); err != nil {
			return errors.Wrap(err, "pebblekv: batch set")
		}
	}
	if c.Checkpoint != nil {
		if err := b.Set(checkpointKey, []byte(store.FormatCheckpoint(*c.Checkpoint)), nil); err != nil {
			return errors.Wrap(err, "pebblekv: batch set checkpoint")
		}
	}
	return errors.Wrap(s.db.CommitBatch(ctx, b), "pebblekv: commit")
}

func (s *Store) Checkpoint(ctx context.Context) (uint64, bool, error) {
	raw, err := s.db.Get(checkpointKey)
	if errors.Is(err, pebblestore.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	h, err := store.ParseCheckpoint(string(raw))
	return h, err == nil, err
}

func (s *Store) Get(ctx context.Context, key, field string) (string, bool, error) {
	raw, err := s.db.Get(fieldKey(key, field))
	if errors.Is(err, pebblestore.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(raw), true, nil
}

// Reconnect is a no-op for an embedded database.
func (s *Store) Reconnect(context.Context) error { return nil }

// Close leaves the shared database open.
func (s *Store) Close() error { return nil }
