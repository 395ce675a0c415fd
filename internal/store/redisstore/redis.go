// Package redisstore stores records as Redis hashes and commits each batch as
// one Lua script. Redis does not roll back MULTI/EXEC, so the script checks
// every key's type before it writes anything.
package redisstore

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/store"
)

// Store is a Redis-backed store.Store.
type Store struct {
	url string

	mu     sync.Mutex
	client *redis.Client
}

var _ store.Store = (*Store)(nil)

// Open connects to url (redis://...) and pings it.
func Open(ctx context.Context, url string) (*Store, error) {
	s := &Store{url: url}
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) connect(ctx context.Context) error {
	opts, err := redis.ParseURL(s.url)
	if err != nil {
		return errors.Wrap(err, "redisstore: parse url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return errors.Wrap(err, "redisstore: ping")
	}
	s.mu.Lock()
	old := s.client
	s.client = client
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

func (s *Store) conn() *redis.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// commitScript applies one commit. KEYS[1] is the checkpoint key and
// KEYS[2..] the mutation keys; ARGV[1] is the checkpoint ("" for none),
// followed by (policy, field, value) per mutation.
var commitScript = redis.NewScript(`
for i = 2, #KEYS do
  local t = redis.call('TYPE', KEYS[i])['ok']
  if t ~= 'hash' and t ~= 'none' then
    return redis.error_reply('WRONGTYPE ' .. KEYS[i] .. ' holds a ' .. t)
  end
end
for i = 2, #KEYS do
  local j = 2 + (i - 2) * 3
  if ARGV[j] == 'nx' then
    redis.call('HSETNX', KEYS[i], ARGV[j + 1], ARGV[j + 2])
  else
    redis.call('HSET', KEYS[i], ARGV[j + 1], ARGV[j + 2])
  end
end
if ARGV[1] ~= '' then
  redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// Commit applies HSETNX/HSET per mutation and SET for the checkpoint in one
// script run. A key of another type fails the whole commit with
// store.ErrWrongType before anything is written.
func (s *Store) Commit(ctx context.Context, c store.Commit) error {
	if err := c.Validate(); err != nil {
		return err
	}
	muts := c.Sorted()
	keys := make([]string, 0, len(muts)+1)
	args := make([]interface{}, 0, 3*len(muts)+1)
	keys = append(keys, store.CheckpointKey)
	if c.Checkpoint != nil {
		args = append(args, store.FormatCheckpoint(*c.Checkpoint))
	} else {
		args = append(args, "")
	}
	for _, m := range muts {
		policy := "set"
		if m.Policy == store.SetIfAbsent {
			policy = "nx"
		}
		keys = append(keys, m.Key)
		args = append(args, policy, m.Field, m.Value)
	}

	err := commitScript.Run(ctx, s.conn(), keys, args...).Err()
	if err != nil && strings.HasPrefix(err.Error(), "WRONGTYPE") {
		err = errors.Mark(err, store.ErrWrongType)
	}
	return errors.Wrapf(err, "redisstore: commit %d mutations", len(muts))
}

func (s *Store) Checkpoint(ctx context.Context) (uint64, bool, error) {
	raw, err := s.conn().Get(ctx, store.CheckpointKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "redisstore: get checkpoint")
	}
	h, err := store.ParseCheckpoint(raw)
	return h, err == nil, err
}

func (s *Store) Get(ctx context.Context, key, field string) (string, bool, error) {
	v, err := s.conn().HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "redisstore: hget %s", key)
	}
	return v, true, nil
}

func (s *Store) Reconnect(ctx context.Context) error { return s.connect(ctx) }

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
