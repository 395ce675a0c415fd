package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	logpkg "github.com/mikedotexe/fastnear-compact-indexer/pkg/log"
)

func newPairsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "pairs",
		Aliases: []string{"run"},
		Short:   "Index ft/nft/staking pairs from the block stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, cleanup, err := opts.openRuntime(ctx, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			cfg := rt.Config()
			rt.Logger().Info("Starting pairs indexer",
				logpkg.Str("source", cfg.Source.Kind),
				logpkg.Str("store", cfg.Store.Kind),
				logpkg.Int("batch_size", cfg.Indexer.BatchSize),
				logpkg.Int("queue_capacity", cfg.Indexer.QueueCapacity),
				logpkg.Str("metrics", cfg.Metrics.Addr))

			return runUntilSignal(ctx, rt.ServeMetrics, rt.RunPairs)
		},
	}
}

// runUntilSignal runs fns together and treats cancellation of ctx as a clean
// shutdown.
func runUntilSignal(ctx context.Context, fns ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		fn := fn
		g.Go(func() error { return fn(gctx) })
	}
	err := g.Wait()
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
