package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	cfgpkg "github.com/mikedotexe/fastnear-compact-indexer/internal/config"
	logpkg "github.com/mikedotexe/fastnear-compact-indexer/pkg/log"
)

func newBackfillCommand(opts *RootOptions) *cobra.Command {
	var export string
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Fetch and store balances for every pair in an export file",
		Long:  "Reads \"account token\" lines (EXPORT_FN or --export), queries ft_balance_of for each pair and stores b:<token> <account> <balance> unless already present.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, cleanup, err := opts.openRuntime(ctx, func(c *cfgpkg.Config) {
				if export != "" {
					c.Backfill.ExportFile = export
				}
			})
			if err != nil {
				return err
			}
			defer cleanup()

			path := rt.Config().Backfill.ExportFile
			if path == "" {
				return errors.New("no export file: set EXPORT_FN or --export")
			}
			f, err := os.Open(path)
			if err != nil {
				return errors.Wrap(err, "open export")
			}
			defer f.Close()

			rt.Logger().Info("Starting balance backfill", logpkg.Str("export", path))
			return runUntilSignal(ctx, rt.ServeMetrics, func(ctx context.Context) error {
				err := rt.RunBackfill(ctx, f)
				if err == nil {
					// let the metrics server stop with the backfill
					stop()
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&export, "export", "", "export file of \"account token\" lines")
	return cmd
}
