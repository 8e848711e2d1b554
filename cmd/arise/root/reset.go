package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"arise/internal/ui"
)

func newResetCmd(flags *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all data of the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("this deletes every task, habit, entry and all XP; re-run with --yes")
			}
			ctx := context.Background()
			svc, _, cleanup, err := buildService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.DeleteAllData(ctx); err != nil {
				return fmt.Errorf("reset failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Warn.Render(ui.IconWarn+" All data deleted."))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}
