package root

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"arise/internal/engine"
	"arise/internal/ui"
)

func newHabitCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "habit",
		Aliases: []string{"h"},
		Short:   "Manage habits",
	}
	cmd.AddCommand(
		newHabitAddCmd(flags),
		newHabitListCmd(flags),
		newHabitCheckCmd(flags, true),
		newHabitCheckCmd(flags, false),
		newHabitEditCmd(flags),
		newHabitRmCmd(flags),
		newHabitHeatmapCmd(flags),
	)
	return cmd
}

func resolveHabitID(ctx context.Context, svc *engine.Service, prefix string) (string, error) {
	habits, err := svc.ListHabits(ctx)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(habits))
	for i, h := range habits {
		ids[i] = h.ID
	}
	return resolveID("habit", prefix, ids)
}

func newHabitAddCmd(flags *globalFlags) *cobra.Command {
	var freq, category, color, reminder, desc string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a habit; today's task is created for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			h, err := svc.CreateHabit(ctx, engine.CreateHabitInput{
				Title:        args[0],
				Description:  desc,
				Frequency:    freq,
				Category:     category,
				Color:        color,
				ReminderTime: reminder,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Added habit %s %s %s\n",
				ui.IconLoop, ui.Muted.Render(shortID(h.ID)), h.Title, ui.Muted.Render("("+h.Frequency+")"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&freq, "frequency", "f", "daily", "Frequency (daily|weekly|custom)")
	cmd.Flags().StringVarP(&category, "category", "c", engine.DefaultCategory, "Category")
	cmd.Flags().StringVar(&color, "color", engine.DefaultColor, "Display color")
	cmd.Flags().StringVarP(&reminder, "remind", "r", "", "Reminder time HH:MM")
	cmd.Flags().StringVar(&desc, "desc", "", "Description")
	return cmd
}

func newHabitListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List habits with streaks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			habits, err := svc.ListHabits(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, ui.Heading(ui.IconLoop, "Habits"))
			if len(habits) == 0 {
				fmt.Fprintln(w, ui.Muted.Render("(no habits)"))
				return nil
			}
			for _, h := range habits {
				fmt.Fprintf(w, "%s %s %s %s %s %d %s\n",
					ui.CheckIcon(svc.CompletedToday(h)),
					ui.Muted.Render(shortID(h.ID)),
					h.Title,
					ui.Muted.Render(h.Frequency),
					ui.IconFlame, h.Streak,
					ui.Muted.Render(fmt.Sprintf("(best %d)", h.BestStreak)),
				)
			}
			return nil
		},
	}
}

func newHabitCheckCmd(flags *globalFlags, check bool) *cobra.Command {
	use, short := "check <id>", "Complete a habit for today"
	if !check {
		use, short = "uncheck <id>", "Remove today's completion"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := resolveHabitID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			var res *engine.HabitResult
			if check {
				res, err = svc.CompleteHabit(ctx, id)
			} else {
				res, err = svc.UncompleteHabit(ctx, id)
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !res.Changed {
				state := "already completed today"
				if !check {
					state = "not completed today"
				}
				fmt.Fprintln(w, ui.Muted.Render(fmt.Sprintf("%s is %s.", res.Habit.Title, state)))
				return nil
			}
			fmt.Fprintf(w, "%s %s %s %d %s\n", ui.CheckIcon(check), res.Habit.Title,
				ui.IconFlame, res.Habit.Streak, ui.Muted.Render(fmt.Sprintf("(best %d)", res.Habit.BestStreak)))
			printXP(w, res.XP)
			return nil
		},
	}
}

func newHabitEditCmd(flags *globalFlags) *cobra.Command {
	var title, desc, freq, category, color, reminder string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := resolveHabitID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			var p engine.HabitPatch
			fl := cmd.Flags()
			for name, dst := range map[string]**string{
				"title":     &p.Title,
				"desc":      &p.Description,
				"frequency": &p.Frequency,
				"category":  &p.Category,
				"color":     &p.Color,
				"remind":    &p.ReminderTime,
			} {
				if fl.Changed(name) {
					v, _ := fl.GetString(name)
					*dst = &v
				}
			}
			h, err := svc.UpdateHabit(ctx, id, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Updated habit %s %s\n", ui.IconSparkle, ui.Muted.Render(shortID(h.ID)), h.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&desc, "desc", "", "New description")
	cmd.Flags().StringVarP(&freq, "frequency", "f", "", "New frequency")
	cmd.Flags().StringVarP(&category, "category", "c", "", "New category")
	cmd.Flags().StringVar(&color, "color", "", "New color")
	cmd.Flags().StringVarP(&reminder, "remind", "r", "", "New reminder HH:MM (empty clears)")
	return cmd
}

func newHabitRmCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a habit and the tasks derived from it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := resolveHabitID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			n, err := svc.DeleteHabit(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted habit %s and %d task(s)\n", shortID(id), n)
			return nil
		},
	}
}

func newHabitHeatmapCmd(flags *globalFlags) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Show habit completions per day",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			heat, err := svc.HabitHeatmap(ctx, days)
			if err != nil {
				return err
			}
			var cells strings.Builder
			for _, d := range heat {
				cells.WriteString(heatCell(d.Count))
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, ui.Heading(ui.IconFlame, fmt.Sprintf("Last %d days", len(heat))))
			fmt.Fprintln(w, cells.String())
			if len(heat) > 0 {
				fmt.Fprintln(w, ui.Muted.Render(heat[0].Day.String()+" … "+heat[len(heat)-1].Day.String()))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "n", 28, "Number of days")
	return cmd
}

func heatCell(n int) string {
	switch {
	case n <= 0:
		return ui.Muted.Render("·")
	case n == 1:
		return ui.Good.Render("▪")
	default:
		return ui.Gold.Render("■")
	}
}
