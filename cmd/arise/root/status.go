package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"arise/internal/engine"
	"arise/internal/ui"
)

func newStatusCmd(flags *globalFlags) *cobra.Command {
	var showAchievements bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show level, rank, streaks and today's progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			snap, err := svc.LoadSnapshot(ctx)
			if err != nil {
				return err
			}
			st := engine.ComputeStats(snap, svc.Today(), svc.Location())
			info := st.Level
			w := cmd.OutOrStdout()

			fmt.Fprintln(w, ui.Heading(ui.IconSparkle, "Hunter Status"))
			fmt.Fprintln(w, ui.LabelValue("Rank", ui.RankBadge(string(info.Rank), info.RankTitle)))
			fmt.Fprintln(w, ui.LabelValue("Level", info.Level))
			fmt.Fprintln(w, ui.LabelValue("Total XP", fmt.Sprintf("%d (next level at %d)", st.XP, info.NextLevelXP)))
			fmt.Fprintf(w, "%s %d%%\n", ui.ProgressBar(info.Progress, 30), info.Progress)
			fmt.Fprintln(w, "")

			fmt.Fprintln(w, ui.H2.Render("📅 Today"))
			fmt.Fprintf(w, "- Tasks: %d/%d done", st.TodayCompleted, st.TodayTasks)
			if st.OverdueTasks > 0 {
				fmt.Fprint(w, " "+ui.Bad.Render(fmt.Sprintf("(%d overdue)", st.OverdueTasks)))
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "- Habits: %d/%d checked\n", st.HabitsDoneToday, st.Habits)
			fmt.Fprintln(w, "")

			fmt.Fprintln(w, ui.H2.Render(ui.IconFlame+" Streaks"))
			fmt.Fprintf(w, "- Tasks: %d day(s)\n", st.TaskStreak)
			fmt.Fprintf(w, "- Journal: %d day(s) %s\n", st.JournalStreak, ui.Muted.Render(fmt.Sprintf("(%d entries)", st.JournalEntries)))
			fmt.Fprintf(w, "- Focus: %d day(s) %s\n", st.FocusStreak, ui.Muted.Render(fmt.Sprintf("(%d min in %d sessions)", st.FocusMinutes, st.FocusSessions)))
			fmt.Fprintf(w, "- Best habit streak: %d\n", st.BestHabitStreak)

			checker := engine.NewAchievementChecker(st)
			fmt.Fprintln(w, "")
			fmt.Fprintln(w, ui.H2.Render(fmt.Sprintf("%s Achievements %d/%d", ui.IconTrophy, checker.CountEarned(), checker.CountTotal())))
			if showAchievements {
				for _, a := range checker.GetAchievements() {
					name := ui.Muted.Render(a.Name)
					if a.Earned {
						name = ui.Gold.Render(a.Name)
					}
					fmt.Fprintf(w, "- %s %s %s\n", a.Icon, name, ui.Muted.Render(a.Description))
				}
			}

			events, err := svc.RecentXP(ctx, 5)
			if err != nil {
				return err
			}
			if len(events) > 0 {
				fmt.Fprintln(w, "")
				fmt.Fprintln(w, ui.H2.Render(ui.IconBolt+" Recent XP"))
				for _, ev := range events {
					fmt.Fprintf(w, "- %+d %s %s\n", ev.Delta, ev.Kind, ui.Muted.Render(ev.CreatedAt.In(svc.Location()).Format("2006-01-02 15:04")))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showAchievements, "achievements", "a", false, "List every achievement")
	return cmd
}
