package root

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"arise/internal/engine"
	"arise/internal/ui"
)

func newMoodCmd(flags *globalFlags) *cobra.Command {
	var (
		energy int
		note   string
		list   bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "mood [1-5]",
		Short: "Log today's mood, or list recent logs with --list",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			w := cmd.OutOrStdout()
			if list || len(args) == 0 {
				logs, err := svc.RecentMoods(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, ui.Heading(ui.IconMood, "Mood"))
				for _, m := range logs {
					line := fmt.Sprintf("%s %s", ui.Muted.Render(m.LogDate.String()), strings.Repeat("●", m.Mood))
					if m.Energy != nil {
						line += ui.Muted.Render(fmt.Sprintf(" energy %d", *m.Energy))
					}
					if m.Note != nil {
						line += " " + *m.Note
					}
					fmt.Fprintln(w, line)
				}
				return nil
			}

			var mood int
			if _, err := fmt.Sscanf(args[0], "%d", &mood); err != nil {
				return engine.ValidationError{Field: "mood", Reason: fmt.Sprintf("%q is not a number", args[0])}
			}
			m, err := svc.LogMood(ctx, engine.MoodInput{Mood: mood, Energy: energy, Note: note})
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s Mood %d logged for %s\n", ui.IconMood, m.Mood, m.LogDate)
			return nil
		},
	}
	cmd.Flags().IntVarP(&energy, "energy", "e", 0, "Energy 1-5")
	cmd.Flags().StringVarP(&note, "note", "n", "", "Note")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List recent logs")
	cmd.Flags().IntVar(&limit, "limit", 14, "Logs to list")
	return cmd
}
