package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/queue"
)

// ProduceFunc fills q until its input ends or ctx is done.
type ProduceFunc[B any] func(ctx context.Context, q *queue.Queue[B]) error

// Run starts the producer and the driver together. The first fatal error
// from either cancels the other and is returned.
func Run[B any](ctx context.Context, produce ProduceFunc[B], d *Driver[B]) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return produce(gctx, d.Queue()) })
	g.Go(func() error { return d.Run(gctx) })
	return g.Wait()
}
