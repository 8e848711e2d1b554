package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"arise/internal/ui"
)

func newRemindersCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reminders",
		Short: "List scheduled notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			pending, err := svc.Reminders(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, ui.Heading(ui.IconBell, "Reminders"))
			if len(pending) == 0 {
				fmt.Fprintln(w, ui.Muted.Render("(none scheduled)"))
				return nil
			}
			for _, n := range pending {
				when := fmt.Sprintf("daily %02d:%02d", n.Hour, n.Minute)
				if !n.Repeats && n.At != nil {
					when = n.At.In(svc.Location()).Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%s %s: %s\n", ui.Key.Render(when), n.Title, n.Body)
			}
			return nil
		},
	}
}
