package source

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/eventlog"
)

// RedisOptions configures a Redis stream source.
type RedisOptions struct {
	URL    string
	Stream string
	// Field holds the block payload in each stream entry.
	Field string
	// Block is the XREAD BLOCK timeout.
	Block time.Duration
}

func (o *RedisOptions) applyDefaults() {
	if o.Stream == "" {
		o.Stream = DefaultStream
	}
	if o.Field == "" {
		o.Field = eventlog.DefaultField
	}
	if o.Block <= 0 {
		o.Block = time.Second
	}
}

// Redis reads a Redis stream with XREAD.
type Redis struct {
	opts RedisOptions

	mu     sync.Mutex
	client *redis.Client
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	opts.applyDefaults()
	r := &Redis{opts: opts}
	if err := r.connect(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Redis) connect(ctx context.Context) error {
	ro, err := redis.ParseURL(r.opts.URL)
	if err != nil {
		return errors.Wrapf(err, "source: parse redis url")
	}
	client := redis.NewClient(ro)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return errors.Wrap(err, "source: ping redis")
	}
	r.mu.Lock()
	old := r.client
	r.client = client
	r.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

func (r *Redis) conn() *redis.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client
}

// ReadAfter issues XREAD COUNT count BLOCK timeout STREAMS stream after.
func (r *Redis) ReadAfter(ctx context.Context, after eventlog.Cursor, count int) ([]Entry, error) {
	res, err := r.conn().XRead(ctx, &redis.XReadArgs{
		Streams: []string{r.opts.Stream, after.String()},
		Count:   int64(count),
		Block:   r.opts.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "source: xread")
	}
	var out []Entry
	for _, stream := range res {
		for _, msg := range stream.Messages {
			e, err := r.toEntry(msg)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// First returns the oldest retained entry via XRANGE - + COUNT 1.
func (r *Redis) First(ctx context.Context) (Entry, bool, error) {
	msgs, err := r.conn().XRangeN(ctx, r.opts.Stream, "-", "+", 1).Result()
	if err != nil {
		return Entry{}, false, errors.Wrap(err, "source: xrange")
	}
	if len(msgs) == 0 {
		return Entry{}, false, nil
	}
	e, err := r.toEntry(msgs[0])
	return e, err == nil, err
}

// Append adds payload under an explicit entry id.
func (r *Redis) Append(ctx context.Context, c eventlog.Cursor, payload []byte) error {
	err := r.conn().XAdd(ctx, &redis.XAddArgs{
		Stream: r.opts.Stream,
		ID:     c.String(),
		Values: map[string]interface{}{r.opts.Field: payload},
	}).Err()
	return errors.Wrapf(err, "source: xadd %s", c)
}

// Reconnect replaces the client with a fresh one.
func (r *Redis) Reconnect(ctx context.Context) error {
	return r.connect(ctx)
}

func (r *Redis) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

func (r *Redis) toEntry(msg redis.XMessage) (Entry, error) {
	c, err := eventlog.ParseCursor(msg.ID)
	if err != nil {
		return Entry{}, errors.Mark(errors.Wrapf(err, "entry id %q", msg.ID), ErrMalformedEntry)
	}
	v, ok := msg.Values[r.opts.Field]
	if !ok {
		return Entry{}, errors.Mark(errors.Newf("entry %s has no %q field", msg.ID, r.opts.Field), ErrMalformedEntry)
	}
	s, ok := v.(string)
	if !ok {
		return Entry{}, errors.Mark(errors.Newf("entry %s field %q is %T", msg.ID, r.opts.Field, v), ErrMalformedEntry)
	}
	return Entry{Cursor: c, Payload: []byte(s)}, nil
}
