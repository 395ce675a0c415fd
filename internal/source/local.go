package source

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/eventlog"
)

// Local serves entries from an on-disk event log. The log's database is owned
// by the caller.
type Local struct {
	log   *eventlog.Log
	field string
	block time.Duration
	// onEmpty runs after a read came back empty. Tests only.
	onEmpty func()
}

// NewLocal wraps an event log. block is how long ReadAfter waits for appends.
func NewLocal(log *eventlog.Log, block time.Duration) *Local {
	if block <= 0 {
		block = time.Second
	}
	return &Local{log: log, field: eventlog.DefaultField, block: block}
}

func (l *Local) ReadAfter(ctx context.Context, after eventlog.Cursor, count int) ([]Entry, error) {
	sig := l.log.AppendSignal()
	items, err := l.read(after, count)
	if err != nil || len(items) > 0 {
		return items, err
	}
	if l.onEmpty != nil {
		l.onEmpty()
	}
	if !eventlog.WaitSignal(ctx, sig, l.block) {
		return nil, ctx.Err()
	}
	return l.read(after, count)
}

func (l *Local) read(after eventlog.Cursor, count int) ([]Entry, error) {
	items, err := l.log.ReadAfter(after, count)
	if err != nil {
		if errors.Is(err, eventlog.ErrCorruptEntry) {
			return nil, errors.Mark(err, ErrMalformedEntry)
		}
		return nil, err
	}
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		if it.Field != l.field {
			return nil, errors.Mark(errors.Newf("entry %s has field %q, want %q", it.Cursor, it.Field, l.field), ErrMalformedEntry)
		}
		out = append(out, Entry{Cursor: it.Cursor, Payload: it.Payload})
	}
	return out, nil
}

func (l *Local) First(ctx context.Context) (Entry, bool, error) {
	it, ok, err := l.log.First()
	if err != nil || !ok {
		return Entry{}, false, err
	}
	return Entry{Cursor: it.Cursor, Payload: it.Payload}, true, nil
}

// Reconnect is a no-op; the log lives in-process.
func (l *Local) Reconnect(context.Context) error { return nil }

func (l *Local) Close() error { return nil }
