package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"arise/internal/engine"
	"arise/internal/ui"
)

func newFocusCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "focus",
		Short: "Track focus sessions",
	}
	cmd.AddCommand(newFocusStartCmd(flags), newFocusDoneCmd(flags), newFocusLogCmd(flags), newFocusListCmd(flags))
	return cmd
}

func focusFlags(cmd *cobra.Command, in *engine.FocusInput) {
	cmd.Flags().StringVar(&in.Mode, "mode", engine.FocusModePomodoro, "Mode (pomodoro|deep|custom)")
	cmd.Flags().IntVarP(&in.Minutes, "minutes", "m", 25, "Planned minutes")
	cmd.Flags().StringVar(&in.TaskID, "task", "", "Task id the session works on")
}

func resolveFocusInput(ctx context.Context, svc *engine.Service, in engine.FocusInput) (engine.FocusInput, error) {
	if in.TaskID == "" {
		return in, nil
	}
	id, err := resolveTaskID(ctx, svc, in.TaskID)
	if err != nil {
		return in, err
	}
	in.TaskID = id
	return in, nil
}

func newFocusStartCmd(flags *globalFlags) *cobra.Command {
	var in engine.FocusInput
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a focus session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			if in, err = resolveFocusInput(ctx, svc, in); err != nil {
				return err
			}
			fs, err := svc.StartFocusSession(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Started %s %s for %d min\n",
				ui.IconClock, fs.Mode, ui.Muted.Render(shortID(fs.ID)), fs.Duration)
			return nil
		},
	}
	focusFlags(cmd, &in)
	return cmd
}

func newFocusDoneCmd(flags *globalFlags) *cobra.Command {
	var minutes int
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Finish a focus session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			sessions, err := svc.ListFocusSessions(ctx)
			if err != nil {
				return err
			}
			ids := make([]string, len(sessions))
			planned := map[string]int{}
			for i, s := range sessions {
				ids[i] = s.ID
				planned[s.ID] = s.Duration
			}
			id, err := resolveID("focus session", args[0], ids)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("minutes") {
				minutes = planned[id]
			}
			res, err := svc.CompleteFocusSession(ctx, id, minutes)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if !res.Changed {
				fmt.Fprintln(w, ui.Muted.Render("Session already completed."))
				return nil
			}
			fmt.Fprintf(w, "%s Focused %d min\n", ui.IconClock, res.Session.CompletedDuration)
			printXP(w, res.XP)
			return nil
		},
	}
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "Minutes actually focused (default: planned)")
	return cmd
}

func newFocusLogCmd(flags *globalFlags) *cobra.Command {
	var in engine.FocusInput
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record a finished focus session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			if in, err = resolveFocusInput(ctx, svc, in); err != nil {
				return err
			}
			res, err := svc.RecordFocusSession(ctx, in)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s Logged %d min of %s\n", ui.IconClock, res.Session.CompletedDuration, res.Session.Mode)
			printXP(w, res.XP)
			return nil
		},
	}
	focusFlags(cmd, &in)
	return cmd
}

func newFocusListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List focus sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			sessions, err := svc.ListFocusSessions(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, ui.Heading(ui.IconClock, "Focus"))
			if len(sessions) == 0 {
				fmt.Fprintln(w, ui.Muted.Render("(no sessions)"))
				return nil
			}
			for _, s := range sessions {
				task := ""
				if s.TaskTitle != nil {
					task = " " + ui.Muted.Render("→ "+*s.TaskTitle)
				}
				fmt.Fprintf(w, "%s %s %s %d/%d min%s\n",
					ui.CheckIcon(s.Completed),
					ui.Muted.Render(shortID(s.ID)),
					s.Mode, s.CompletedDuration, s.Duration, task)
			}
			return nil
		},
	}
}
