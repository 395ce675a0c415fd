package pipeline

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/eventlog"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/source"
)

func TestResolveStart(t *testing.T) {
	tests := []struct {
		name      string
		first     uint64
		stored    uint64
		hasStored bool
		want      uint64
		wantErr   bool
	}{
		{name: "fresh start skips the margin", first: 1000, want: 1100},
		{name: "stored checkpoint wins", first: 1000, stored: 5000, hasStored: true, want: 5000},
		{name: "exactly at the margin", first: 1000, stored: 1100, hasStored: true, want: 1100},
		{name: "too close to the log start", first: 1000, stored: 1050, hasStored: true, wantErr: true},
		{name: "behind the log start", first: 1000, stored: 10, hasStored: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveStart(tt.first, tt.stored, tt.hasStored, DefaultSafeOffset)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrResumeTooClose))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type stubSource struct {
	first *eventlog.Cursor
}

func (s stubSource) ReadAfter(context.Context, eventlog.Cursor, int) ([]source.Entry, error) {
	return nil, nil
}

func (s stubSource) First(context.Context) (source.Entry, bool, error) {
	if s.first == nil {
		return source.Entry{}, false, nil
	}
	return source.Entry{Cursor: *s.first}, true, nil
}

func (s stubSource) Reconnect(context.Context) error { return nil }
func (s stubSource) Close() error                    { return nil }

type stubLoader struct {
	h  uint64
	ok bool
}

func (l stubLoader) LoadCheckpoint(context.Context) (uint64, bool, error) { return l.h, l.ok, nil }

func TestStartCursor(t *testing.T) {
	ctx := context.Background()
	first := eventlog.Cursor{Height: 500, Seq: 2}

	c, err := StartCursor(ctx, stubSource{first: &first}, stubLoader{}, 100)
	require.NoError(t, err)
	assert.Equal(t, "600-0", c.String())

	c, err = StartCursor(ctx, stubSource{first: &first}, stubLoader{h: 900, ok: true}, 100)
	require.NoError(t, err)
	assert.Equal(t, "900-0", c.String())

	_, err = StartCursor(ctx, stubSource{first: &first}, stubLoader{h: 550, ok: true}, 100)
	assert.True(t, errors.Is(err, ErrResumeTooClose))

	c, err = StartCursor(ctx, stubSource{}, stubLoader{h: 42, ok: true}, 100)
	require.NoError(t, err)
	assert.Equal(t, eventlog.CursorAt(42), c)

	_, err = StartCursor(ctx, stubSource{}, stubLoader{}, 100)
	assert.True(t, errors.Is(err, ErrEmptySource))
}
