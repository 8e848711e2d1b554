package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"arise/internal/ui"
)

const Version = "0.2.0"

// globalFlags override the loaded configuration for one invocation.
type globalFlags struct {
	dbPath  string
	userID  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "arise",
		Short:         "Arise: level up by finishing what you start",
		Long:          "Arise is a local-first CLI/TUI for tasks, habits, journaling and focus sessions with hunter-rank progression.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.dbPath, "db", "", "SQLite database path (default $ARISE_DB or ~/.arise.db)")
	pf.StringVar(&flags.userID, "user", "", "User id of the session")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Debug logging to stderr")

	cmd.AddCommand(
		newStatusCmd(flags),
		newTaskCmd(flags),
		newHabitCmd(flags),
		newJournalCmd(flags),
		newFocusCmd(flags),
		newMoodCmd(flags),
		newCategoryCmd(flags),
		newSyncCmd(flags),
		newRemindersCmd(flags),
		newBoardCmd(flags),
		newResetCmd(flags),
		newConfigCmd(flags),
	)
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}
