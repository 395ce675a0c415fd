package cmd

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/block"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/eventlog"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/source"
)

func newLogCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "log", Short: "Manage the block log"}
	cmd.AddCommand(newLogAppendCommand(opts))
	cmd.AddCommand(newLogTrimCommand(opts))
	return cmd
}

func newLogAppendCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "append FILE...",
		Short: "Append block JSON files to the configured source log",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, cleanup, err := opts.openRuntime(ctx, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			var (
				stream *source.Redis
				local  *eventlog.Log
			)
			if rt.Config().Source.Kind == "redis" {
				src, err := rt.OpenSource(ctx)
				if err != nil {
					return err
				}
				defer src.Close()
				stream = src.(*source.Redis)
			} else if local, err = rt.OpenLog(); err != nil {
				return err
			}

			for _, path := range args {
				payload, err := os.ReadFile(path)
				if err != nil {
					return errors.Wrapf(err, "read %s", path)
				}
				b, err := block.Decode(payload)
				if err != nil {
					return errors.Wrapf(err, "decode %s", path)
				}

				c := eventlog.CursorAt(b.Height)
				if stream != nil {
					err = stream.Append(ctx, c, payload)
				} else {
					var cs []eventlog.Cursor
					if cs, err = local.Append(ctx, []eventlog.AppendRecord{{Height: b.Height, Payload: payload}}); err == nil {
						c = cs[0]
					}
				}
				if err != nil {
					return errors.Wrapf(err, "append %s", path)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", c, path)
			}
			return nil
		},
	}
}

func newLogTrimCommand(opts *RootOptions) *cobra.Command {
	var below uint64
	cmd := &cobra.Command{
		Use:   "trim",
		Short: "Delete local log entries below a height",
		RunE: func(cmd *cobra.Command, args []string) error {
			if below == 0 {
				return errors.New("--below is required")
			}
			rt, cleanup, err := opts.openRuntime(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer cleanup()

			log, err := rt.OpenLog()
			if err != nil {
				return err
			}
			n, err := log.TrimBelow(cmd.Context(), below, 0)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "trimmed %d entries\n", n)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&below, "below", 0, "delete entries with height < below")
	return cmd
}
