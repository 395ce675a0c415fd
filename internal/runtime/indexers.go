package runtime

import (
	"context"
	"io"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/backfill"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/pipeline"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/queue"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/reader"
	logpkg "github.com/mikedotexe/fastnear-compact-indexer/pkg/log"
)

// RunPairs runs the pair indexer: it resolves the resume point, then tails
// the source and commits pair presence with a checkpoint per batch.
func (r *Runtime) RunPairs(ctx context.Context) error {
	src, err := r.OpenSource(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	start, err := pipeline.StartCursor(ctx, src, r.sink, r.config.Indexer.SafeOffset)
	if err != nil {
		return err
	}
	r.logger.Info("Resuming", logpkg.Str("cursor", start.String()))

	strategy, err := pipeline.NewPairIndex(r.rules, r.logger)
	if err != nil {
		return err
	}
	floor := start.Height
	rd := reader.New(src, nil, reader.Options{
		BatchSize:     r.config.Indexer.BatchSize,
		RetryDelay:    r.config.Indexer.RetryDelay(),
		FlushInterval: r.config.Indexer.FlushInterval(),
		Logger:        r.logger,
		Hooks:         r.metrics,
	})
	d := pipeline.NewDriver[reader.Batch](
		queue.New[reader.Batch](r.config.Indexer.QueueCapacity),
		strategy,
		r.sink,
		pipeline.DriverOptions{
			EnrichAttempts: r.config.Indexer.EnrichAttempts,
			Floor:          &floor,
			Logger:         r.logger,
			Hooks:          r.metrics,
		},
	)
	return pipeline.Run(ctx, func(ctx context.Context, q *queue.Queue[reader.Batch]) error {
		return rd.Run(ctx, start, q)
	}, d)
}

// RunBackfill enriches every pair of the export with its balance.
func (r *Runtime) RunBackfill(ctx context.Context, export io.Reader) error {
	p := backfill.NewProducer(export, backfill.Options{
		BatchSize: r.config.Backfill.BatchSize,
		Logger:    r.logger,
	})
	d := pipeline.NewDriver[backfill.Batch](
		queue.New[backfill.Batch](r.config.Indexer.QueueCapacity),
		pipeline.NewBalanceBackfill(r.logger),
		r.sink,
		pipeline.DriverOptions{
			Enricher:       r.Enricher(),
			EnrichAttempts: r.config.Indexer.EnrichAttempts,
			EnrichDelay:    r.config.Indexer.RetryDelay(),
			Logger:         r.logger,
			Hooks:          r.metrics,
		},
	)
	return pipeline.Run(ctx, p.Run, d)
}
