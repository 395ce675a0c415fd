package eventlog

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	pebblestore "github.com/mikedotexe/fastnear-compact-indexer/internal/storage/pebble"
)

// DefaultField is the field name every block entry carries.
const DefaultField = "block"

// ErrOutOfOrder is returned when an append would not advance the log.
var ErrOutOfOrder = errors.New("append height is behind the log head")

// AppendRecord is one block payload to append at Height.
type AppendRecord struct {
	Height  uint64
	Payload []byte
}

// Log is an append-only block log for one topic.
type Log struct {
	db    *pebblestore.DB
	topic string

	mu       sync.Mutex
	last     Cursor
	hasLast  bool
	notifyCh chan struct{}
}

// OpenLog initializes a Log and loads the last cursor from metadata (if any).
func OpenLog(db *pebblestore.DB, topic string) (*Log, error) {
	if topic == "" {
		return nil, errors.New("eventlog: topic is required")
	}
	l := &Log{db: db, topic: topic, notifyCh: make(chan struct{})}
	meta, err := db.Get(KeyLogMeta(topic))
	switch {
	case err == nil:
		c, ok := decodeCursor(meta)
		if !ok {
			return nil, errors.Newf("eventlog: corrupt meta for topic %q", topic)
		}
		l.last, l.hasLast = c, true
	case errors.Is(err, pebblestore.ErrNotFound):
	default:
		return nil, errors.Wrap(err, "eventlog: load meta")
	}
	return l, nil
}

// Last returns the cursor of the most recent entry.
func (l *Log) Last() (Cursor, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last, l.hasLast
}

// Append appends recs as a single atomic batch and returns the assigned cursors.
// Heights must be non-decreasing; repeated heights get increasing sequence numbers.
func (l *Log) Append(ctx context.Context, recs []AppendRecord) ([]Cursor, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	last, hasLast := l.last, l.hasLast
	cursors := make([]Cursor, len(recs))
	for i, r := range recs {
		var c Cursor
		switch {
		case !hasLast || r.Height > last.Height:
			c = CursorAt(r.Height)
		case r.Height == last.Height:
			c = last.Next()
		default:
			return nil, errors.Wrapf(ErrOutOfOrder, "height %d, head %s", r.Height, last)
		}
		if err := b.Set(KeyLogEntry(l.topic, c), EncodeRecord(DefaultField, r.Payload), nil); err != nil {
			return nil, err
		}
		cursors[i] = c
		last, hasLast = c, true
	}

	if err := b.Set(KeyLogMeta(l.topic), encodeCursor(last), nil); err != nil {
		return nil, err
	}
	if err := l.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	l.last, l.hasLast = last, true
	// wake waiters
	close(l.notifyCh)
	l.notifyCh = make(chan struct{})
	return cursors, nil
}
