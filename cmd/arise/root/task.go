package root

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"arise/internal/engine"
	"arise/internal/storage"
	"arise/internal/ui"
)

func newTaskCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"t"},
		Short:   "Manage tasks",
	}
	cmd.AddCommand(
		newTaskAddCmd(flags),
		newTaskListCmd(flags),
		newTaskDoneCmd(flags),
		newTaskUndoCmd(flags),
		newTaskEditCmd(flags),
		newTaskRmCmd(flags),
	)
	return cmd
}

func resolveTaskID(ctx context.Context, svc *engine.Service, prefix string) (string, error) {
	tasks, err := svc.ListTasks(ctx, engine.TaskFilter{})
	if err != nil {
		return "", err
	}
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return resolveID("task", prefix, ids)
}

func newTaskAddCmd(flags *globalFlags) *cobra.Command {
	var (
		due, priority, category, reminder, desc string
		estimate                                int
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			day, err := engine.ParseDay(due, svc.Today())
			if err != nil {
				return err
			}
			in := engine.CreateTaskInput{
				Title:        args[0],
				Description:  desc,
				DueDate:      &day,
				Priority:     priority,
				Category:     category,
				ReminderTime: reminder,
			}
			if estimate > 0 {
				in.EstimatedMinutes = &estimate
			}
			t, err := svc.CreateTask(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Added %s %s %s\n",
				ui.IconPlus, ui.Muted.Render(shortID(t.ID)), t.Title, ui.Muted.Render("due "+t.DueDate.String()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&due, "due", "d", "today", "Due date (YYYY-MM-DD|today|tomorrow)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "medium", "Priority (high|medium|low)")
	cmd.Flags().StringVarP(&category, "category", "c", engine.DefaultCategory, "Category")
	cmd.Flags().StringVarP(&reminder, "remind", "r", "", "Reminder time HH:MM on the due date")
	cmd.Flags().StringVar(&desc, "desc", "", "Description")
	cmd.Flags().IntVarP(&estimate, "estimate", "e", 0, "Estimated minutes")
	return cmd
}

func newTaskListCmd(flags *globalFlags) *cobra.Command {
	var (
		all  bool
		open bool
		on   string
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List today's tasks (or all with --all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			f := engine.TaskFilter{Open: open}
			if !all {
				day, err := engine.ParseDay(on, svc.Today())
				if err != nil {
					return err
				}
				f.Day = &day
			}
			tasks, err := svc.ListTasks(ctx, f)
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), svc, tasks)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "List every task")
	cmd.Flags().BoolVarP(&open, "open", "o", false, "Hide completed tasks")
	cmd.Flags().StringVar(&on, "on", "today", "Day to list")
	return cmd
}

func printTasks(w io.Writer, svc *engine.Service, tasks []storage.Task) {
	fmt.Fprintln(w, ui.Heading(ui.IconScroll, "Quest Log"))
	if len(tasks) == 0 {
		fmt.Fprintln(w, ui.Muted.Render("(no tasks)"))
		return
	}
	for _, t := range tasks {
		line := fmt.Sprintf("%s %s %s %s [%s] %s %s",
			ui.CheckIcon(t.Completed),
			ui.Muted.Render(shortID(t.ID)),
			ui.KindIcon(engine.IsHabitTask(t)),
			t.Title,
			ui.PriorityText(t.Priority),
			ui.Muted.Render(t.DueDate.String()),
			ui.StatusText(t.Completed, svc.TaskOverdue(t)),
		)
		if t.ReminderTime != nil && !t.Completed {
			line += " " + ui.IconBell + " " + *t.ReminderTime
		}
		fmt.Fprintln(w, line)
	}
}

func printXP(w io.Writer, xp engine.XPChange) {
	switch {
	case xp.Delta > 0:
		fmt.Fprintln(w, ui.Good.Render(fmt.Sprintf("%s +%d XP", ui.IconBolt, xp.Delta))+" "+ui.Muted.Render(fmt.Sprintf("(total %d)", xp.XPAfter)))
	case xp.Delta < 0:
		fmt.Fprintln(w, ui.Warn.Render(fmt.Sprintf("%d XP", xp.Delta))+" "+ui.Muted.Render(fmt.Sprintf("(total %d)", xp.XPAfter)))
	}
	if xp.LevelUp {
		fmt.Fprintf(w, "%s %s %d → %d %s\n", ui.IconTrophy, ui.BadgeLevelUp, xp.LevelBefore, xp.LevelAfter,
			ui.RankBadge(string(xp.Info.Rank), xp.Info.RankTitle))
	}
}

func printTaskResult(w io.Writer, verb string, res *engine.TaskResult) {
	if !res.Changed {
		fmt.Fprintln(w, ui.Muted.Render(fmt.Sprintf("%s is already %s.", res.Task.Title, verb)))
		return
	}
	fmt.Fprintf(w, "%s %s: %s\n", ui.IconDone, verb, res.Task.Title)
	if res.Message != "" {
		fmt.Fprintln(w, ui.Warn.Render(ui.IconWarn+" "+res.Message))
	}
	printXP(w, res.XP)
	if res.Habit != nil {
		fmt.Fprintf(w, "%s %s streak %d (best %d)\n", ui.IconFlame, res.Habit.Title, res.Habit.Streak, res.Habit.BestStreak)
	}
}

func newTaskDoneCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Complete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := resolveTaskID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			res, err := svc.CompleteTask(ctx, id)
			if err != nil {
				return err
			}
			printTaskResult(cmd.OutOrStdout(), "completed", res)
			return nil
		},
	}
}

func newTaskUndoCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "undo <id>",
		Short: "Reopen a completed task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := resolveTaskID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			res, err := svc.UncompleteTask(ctx, id)
			if err != nil {
				return err
			}
			printTaskResult(cmd.OutOrStdout(), "reopened", res)
			return nil
		},
	}
}

func newTaskEditCmd(flags *globalFlags) *cobra.Command {
	var title, desc, due, priority, category, reminder string
	var estimate int
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := resolveTaskID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			var p engine.TaskPatch
			fl := cmd.Flags()
			if fl.Changed("title") {
				p.Title = &title
			}
			if fl.Changed("desc") {
				p.Description = &desc
			}
			if fl.Changed("due") {
				day, err := engine.ParseDay(due, svc.Today())
				if err != nil {
					return err
				}
				p.DueDate = &day
			}
			if fl.Changed("priority") {
				p.Priority = &priority
			}
			if fl.Changed("category") {
				p.Category = &category
			}
			if fl.Changed("remind") {
				p.ReminderTime = &reminder
			}
			if fl.Changed("estimate") {
				p.EstimatedMinutes = &estimate
			}
			t, err := svc.UpdateTask(ctx, id, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Updated %s %s\n", ui.IconSparkle, ui.Muted.Render(shortID(t.ID)), t.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&desc, "desc", "", "New description")
	cmd.Flags().StringVarP(&due, "due", "d", "", "New due date")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "New priority")
	cmd.Flags().StringVarP(&category, "category", "c", "", "New category")
	cmd.Flags().StringVarP(&reminder, "remind", "r", "", "New reminder HH:MM (empty clears)")
	cmd.Flags().IntVarP(&estimate, "estimate", "e", 0, "Estimated minutes (0 clears)")
	return cmd
}

func newTaskRmCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := resolveTaskID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			if err := svc.DeleteTask(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", shortID(id))
			return nil
		},
	}
}
