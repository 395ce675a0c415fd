package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFO(t *testing.T) {
	q := New[int](4)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, q.Put(ctx, i))
	}
	for i := 0; i < 4; i++ {
		v, err := q.Take(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
}

func TestBackpressure(t *testing.T) {
	q := New[int](2)
	ctx := context.Background()
	var produced atomic.Int32

	go func() {
		for i := 0; i < 5; i++ {
			if err := q.Put(ctx, i); err != nil {
				return
			}
			produced.Add(1)
		}
	}()

	require.Eventually(t, func() bool { return produced.Load() == 2 }, time.Second, 5*time.Millisecond)
	// producer stays parked while the queue is full
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), produced.Load())
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 2, q.Cap())

	v, err := q.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
	require.Eventually(t, func() bool { return produced.Load() == 3 }, time.Second, 5*time.Millisecond)

	var got []int
	for len(got) < 4 {
		v, err := q.Take(ctx)
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, got, "no item may be lost or reordered")
}

func TestTakeHonorsContext(t *testing.T) {
	q := New[string](1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Take(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestPutHonorsContext(t *testing.T) {
	q := New[string](1)
	require.NoError(t, q.Put(context.Background(), "a"))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.True(t, errors.Is(q.Put(ctx, "b"), context.DeadlineExceeded))
}

func TestCloseDrainsThenErrors(t *testing.T) {
	q := New[int](3)
	ctx := context.Background()
	require.NoError(t, q.Put(ctx, 1))
	require.NoError(t, q.Put(ctx, 2))
	q.Close()
	q.Close()

	assert.ErrorIs(t, q.Put(ctx, 3), ErrClosed)
	v, err := q.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = q.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	_, err = q.Take(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}
