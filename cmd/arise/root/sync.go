package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"arise/internal/ui"
)

func newSyncCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Create today's tasks for due habits",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, _, cleanup, err := buildService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.RefreshHabitTasks(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, t := range res.Created {
				fmt.Fprintf(w, "%s %s %s\n", ui.IconPlus, ui.Muted.Render(shortID(t.ID)), t.Title)
			}
			fmt.Fprintf(w, "%d created, %d already present\n", len(res.Created), res.Existing)
			return nil
		},
	}
}
