package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckpointCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoint",
		Short: "Print the stored checkpoint height",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := opts.openRuntime(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer cleanup()

			h, ok, err := rt.Store().Checkpoint(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "none")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}
