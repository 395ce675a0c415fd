package queue

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrClosed is returned by Take once the queue is closed and drained, and by
// Put after Close.
var ErrClosed = errors.New("queue closed")

// Queue is a bounded FIFO between one producer and one consumer. Put blocks
// while the queue is full and Take blocks while it is empty; nothing is dropped.
type Queue[T any] struct {
	ch        chan T
	closeOnce sync.Once
	closed    chan struct{}
}

// New returns a queue holding at most capacity items. capacity < 1 is treated as 1.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{ch: make(chan T, capacity), closed: make(chan struct{})}
}

// Put enqueues v, suspending while the queue is full.
func (q *Queue[T]) Put(ctx context.Context, v T) error {
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closed:
		return ErrClosed
	}
}

// Take dequeues the oldest item, suspending while the queue is empty. After
// Close, remaining items are still delivered before ErrClosed.
func (q *Queue[T]) Take(ctx context.Context) (T, error) {
	var zero T
	select {
	case v := <-q.ch:
		return v, nil
	default:
	}
	select {
	case v := <-q.ch:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-q.closed:
		select {
		case v := <-q.ch:
			return v, nil
		default:
			return zero, ErrClosed
		}
	}
}

// Close marks the end of input. It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int { return cap(q.ch) }
