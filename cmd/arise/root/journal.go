package root

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"arise/internal/engine"
	"arise/internal/ui"
)

func newJournalCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "journal",
		Aliases: []string{"j"},
		Short:   "Write and browse journal entries",
	}
	cmd.AddCommand(newJournalAddCmd(flags), newJournalListCmd(flags), newJournalRmCmd(flags))
	return cmd
}

func newJournalAddCmd(flags *globalFlags) *cobra.Command {
	var (
		content string
		mood    int
		tags    []string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Write a journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.AddJournalEntry(ctx, engine.JournalInput{
				Title:   args[0],
				Content: content,
				Mood:    mood,
				Tags:    tags,
			})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s Saved %s %s\n", ui.IconScroll, ui.Muted.Render(shortID(res.Entry.ID)), res.Entry.Title)
			printXP(w, res.XP)
			return nil
		},
	}
	cmd.Flags().StringVarP(&content, "text", "t", "", "Entry text")
	cmd.Flags().IntVarP(&mood, "mood", "m", 0, "Mood 1-5")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	return cmd
}

func newJournalListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List journal entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := svc.ListJournal(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, ui.Heading(ui.IconScroll, "Journal"))
			if len(entries) == 0 {
				fmt.Fprintln(w, ui.Muted.Render("(no entries)"))
				return nil
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s %s %s %s",
					ui.Muted.Render(shortID(e.ID)),
					ui.Muted.Render(e.CreatedAt.In(svc.Location()).Format("2006-01-02 15:04")),
					e.Title,
					ui.Muted.Render(e.Sentiment))
				if len(e.Tags) > 0 {
					line += " " + ui.Key.Render("#"+strings.Join(e.Tags, " #"))
				}
				fmt.Fprintln(w, line)
			}
			return nil
		},
	}
}

func newJournalRmCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := svc.ListJournal(ctx)
			if err != nil {
				return err
			}
			ids := make([]string, len(entries))
			for i, e := range entries {
				ids[i] = e.ID
			}
			id, err := resolveID("journal entry", args[0], ids)
			if err != nil {
				return err
			}
			if err := svc.DeleteJournalEntry(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", shortID(id))
			return nil
		},
	}
}
