package reader

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/block"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/eventlog"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/queue"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/source"
)

// memSource serves a fixed slice of entries and can fail on demand.
type memSource struct {
	mu         sync.Mutex
	entries    []source.Entry
	failNext   int
	reconnects int
	reads      []eventlog.Cursor
}

func (m *memSource) ReadAfter(ctx context.Context, after eventlog.Cursor, count int) ([]source.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, after)
	if m.failNext > 0 {
		m.failNext--
		return nil, errors.New("connection reset")
	}
	var out []source.Entry
	for _, e := range m.entries {
		if after.Less(e.Cursor) && len(out) < count {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		m.mu.Unlock()
		select {
		case <-time.After(5 * time.Millisecond):
		case <-ctx.Done():
		}
		m.mu.Lock()
	}
	return out, nil
}

func (m *memSource) First(context.Context) (source.Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return source.Entry{}, false, nil
	}
	return m.entries[0], true, nil
}

func (m *memSource) Reconnect(context.Context) error {
	m.mu.Lock()
	m.reconnects++
	m.mu.Unlock()
	return nil
}

func (m *memSource) Close() error { return nil }

func heightDecoder(payload []byte) (block.Block, error) {
	h, err := strconv.ParseUint(string(payload), 10, 64)
	if err != nil {
		return block.Block{}, err
	}
	return block.Block{Height: h}, nil
}

func entriesAt(heights ...uint64) []source.Entry {
	out := make([]source.Entry, 0, len(heights))
	for _, h := range heights {
		out = append(out, source.Entry{Cursor: eventlog.CursorAt(h), Payload: []byte(strconv.FormatUint(h, 10))})
	}
	return out
}

func runReader(t *testing.T, r *Reader, start eventlog.Cursor, q *queue.Queue[Batch]) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, start, q) }()
	t.Cleanup(cancel)
	return cancel, done
}

func take(t *testing.T, q *queue.Queue[Batch]) Batch {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := q.Take(ctx)
	require.NoError(t, err)
	return b
}

func TestRunBatchesInOrder(t *testing.T) {
	src := &memSource{entries: entriesAt(5, 6, 7, 8, 9)}
	q := queue.New[Batch](10)
	r := New(src, heightDecoder, Options{BatchSize: 2})
	runReader(t, r, eventlog.CursorAt(5), q)

	b1 := take(t, q)
	b2 := take(t, q)
	require.Len(t, b1.Blocks, 2)
	assert.Equal(t, uint64(6), b1.Blocks[0].Height)
	assert.Equal(t, eventlog.CursorAt(7), b1.Last)
	assert.Equal(t, eventlog.CursorAt(9), b2.Last)
}

func TestRunRetriesWithReconnect(t *testing.T) {
	src := &memSource{entries: entriesAt(1, 2), failNext: 2}
	q := queue.New[Batch](10)
	r := New(src, heightDecoder, Options{BatchSize: 1, RetryDelay: time.Millisecond})
	runReader(t, r, eventlog.CursorAt(0), q)

	assert.Equal(t, uint64(1), take(t, q).Last.Height)
	assert.Equal(t, uint64(2), take(t, q).Last.Height)

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, 2, src.reconnects)
	// the failed reads were retried from the same cursor
	assert.Equal(t, eventlog.CursorAt(0), src.reads[0])
	assert.Equal(t, eventlog.CursorAt(0), src.reads[2])
}

func TestRunDecodeFailureIsFatal(t *testing.T) {
	src := &memSource{entries: []source.Entry{{Cursor: eventlog.CursorAt(3), Payload: []byte("nope")}}}
	q := queue.New[Batch](10)
	r := New(src, heightDecoder, Options{BatchSize: 1})
	_, done := runReader(t, r, eventlog.CursorAt(0), q)

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedEntry))
		assert.Contains(t, err.Error(), "3-0")
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not stop")
	}
	assert.Zero(t, q.Len())
}

func TestRunBlocksOnFullQueue(t *testing.T) {
	src := &memSource{entries: entriesAt(1, 2, 3, 4, 5, 6)}
	q := queue.New[Batch](1)
	r := New(src, heightDecoder, Options{BatchSize: 1})
	runReader(t, r, eventlog.CursorAt(0), q)

	require.Eventually(t, func() bool { return q.Len() == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	src.mu.Lock()
	reads := len(src.reads)
	src.mu.Unlock()
	// one batch queued, one held by the parked reader
	assert.Equal(t, 2, reads)

	for h := uint64(1); h <= 6; h++ {
		assert.Equal(t, h, take(t, q).Last.Height)
	}
}

func TestRunFlushesPartialBatchWhenIdle(t *testing.T) {
	src := &memSource{entries: entriesAt(10, 11, 12)}
	q := queue.New[Batch](4)
	r := New(src, heightDecoder, Options{BatchSize: 100, FlushInterval: 20 * time.Millisecond})
	runReader(t, r, eventlog.CursorAt(9), q)

	b := take(t, q)
	assert.Len(t, b.Blocks, 3)
	assert.Equal(t, eventlog.CursorAt(12), b.Last)
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &memSource{}
	q := queue.New[Batch](1)
	r := New(src, heightDecoder, Options{})
	cancel, done := runReader(t, r, eventlog.CursorAt(0), q)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not stop")
	}
}
