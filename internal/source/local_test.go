package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/eventlog"
	pebblestore "github.com/mikedotexe/fastnear-compact-indexer/internal/storage/pebble"
)

func newTestLocal(t *testing.T) (*eventlog.Log, *Local) {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	l, err := eventlog.OpenLog(db, DefaultStream)
	require.NoError(t, err)
	return l, NewLocal(l, 50*time.Millisecond)
}

func TestLocalReadAfter(t *testing.T) {
	l, src := newTestLocal(t)
	ctx := context.Background()
	_, err := l.Append(ctx, []eventlog.AppendRecord{
		{Height: 3, Payload: []byte("a")},
		{Height: 4, Payload: []byte("b")},
	})
	require.NoError(t, err)

	got, err := src.ReadAfter(ctx, eventlog.CursorAt(3), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []byte("b"), got[0].Payload)

	first, ok, err := src.First(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(3), first.Cursor.Height)
}

func TestLocalReadAfterWakesOnAppend(t *testing.T) {
	l, src := newTestLocal(t)
	ctx := context.Background()
	src.block = 5 * time.Second

	done := make(chan []Entry, 1)
	go func() {
		got, _ := src.ReadAfter(ctx, eventlog.CursorAt(0), 10)
		done <- got
	}()
	time.Sleep(20 * time.Millisecond)
	_, err := l.Append(ctx, []eventlog.AppendRecord{{Height: 9, Payload: []byte("z")}})
	require.NoError(t, err)

	select {
	case got := <-done:
		require.Len(t, got, 1)
		assert.Equal(t, uint64(9), got[0].Cursor.Height)
	case <-time.After(2 * time.Second):
		t.Fatal("reader was not woken by append")
	}
}

func TestLocalReadAfterTimesOutEmpty(t *testing.T) {
	_, src := newTestLocal(t)
	got, err := src.ReadAfter(context.Background(), eventlog.CursorAt(0), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLocalReadAfterSeesAppendBetweenReadAndWait(t *testing.T) {
	l, src := newTestLocal(t)
	ctx := context.Background()
	src.block = 10 * time.Second
	src.onEmpty = func() {
		_, err := l.Append(ctx, []eventlog.AppendRecord{{Height: 5, Payload: []byte("late")}})
		require.NoError(t, err)
	}

	start := time.Now()
	got, err := src.ReadAfter(ctx, eventlog.CursorAt(0), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []byte("late"), got[0].Payload)
	assert.Less(t, time.Since(start), 5*time.Second)
}
