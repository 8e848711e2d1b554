package root

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arise/internal/config"
	"arise/internal/engine"
)

type cli struct {
	t    *testing.T
	db   string
	user string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(home)
	return &cli{t: t, db: filepath.Join(home, "arise.db"), user: "tester"}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--db", c.db, "--user", c.user}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (c *cli) service() (*engine.Service, func()) {
	c.t.Helper()
	svc, cleanup, err := openService(context.Background(), &globalFlags{dbPath: c.db, userID: c.user})
	require.NoError(c.t, err)
	return svc, cleanup
}

func TestResolveID(t *testing.T) {
	ids := []string{"abc123", "abd456", "xyz789"}

	id, err := resolveID("task", "abc", ids)
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	id, err = resolveID("task", "xyz789", ids)
	require.NoError(t, err)
	assert.Equal(t, "xyz789", id)

	_, err = resolveID("task", "ab", ids)
	assert.ErrorContains(t, err, "ambiguous")

	_, err = resolveID("task", "zzz", ids)
	assert.True(t, engine.IsNotFound(err))

	_, err = resolveID("task", " ", ids)
	assert.Error(t, err)
}

func TestTaskLifecycleThroughCLI(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("task", "add", "Write tests", "--priority", "high", "--remind", "23:59")
	require.NoError(t, err)
	assert.Contains(t, out, "Write tests")

	out, err = c.run("task", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Write tests")

	svc, cleanup := c.service()
	tasks, err := svc.ListTasks(context.Background(), engine.TaskFilter{})
	cleanup()
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	out, err = c.run("task", "done", shortID(tasks[0].ID))
	require.NoError(t, err)
	assert.Contains(t, out, "+50 XP")

	out, err = c.run("task", "done", shortID(tasks[0].ID))
	require.NoError(t, err)
	assert.Contains(t, out, "already completed")

	out, err = c.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "The Awakened")
	assert.Contains(t, out, "Total XP")
}

func TestHabitCommands(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("habit", "add", "Meditate")
	require.NoError(t, err)

	out, err := c.run("sync")
	require.NoError(t, err)
	assert.Contains(t, out, "0 created, 1 already present")

	svc, cleanup := c.service()
	habits, err := svc.ListHabits(context.Background())
	cleanup()
	require.NoError(t, err)
	require.Len(t, habits, 1)

	out, err = c.run("habit", "check", shortID(habits[0].ID))
	require.NoError(t, err)
	assert.Contains(t, out, "+30 XP")

	out, err = c.run("habit", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Meditate")
}

func TestCommandsRefreshHabitTasksOnNewDay(t *testing.T) {
	c := newCLI(t)
	start := time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)
	now = func() time.Time { return start }
	t.Cleanup(func() { now = time.Now })

	_, err := c.run("habit", "add", "Stretch")
	require.NoError(t, err)

	now = func() time.Time { return start.AddDate(0, 0, 1) }
	out, err := c.run("task", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Stretch")

	svc, _, cleanup, err := buildService(context.Background(), &globalFlags{dbPath: c.db, userID: c.user})
	require.NoError(t, err)
	defer cleanup()
	today := svc.Today()
	todays, err := svc.ListTasks(context.Background(), engine.TaskFilter{Day: &today})
	require.NoError(t, err)
	require.Len(t, todays, 1)
	assert.NotNil(t, todays[0].HabitID)

	_, err = c.run("status")
	require.NoError(t, err)
	all, err := svc.ListTasks(context.Background(), engine.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2, "one derived task per day")
}

func TestResetRequiresConfirmation(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("reset")
	assert.ErrorContains(t, err, "--yes")

	out, err := c.run("reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "All data deleted")
}

func TestNoUserDisablesMutations(t *testing.T) {
	c := newCLI(t)
	c.user = ""
	// An explicit empty user in the config file signs the session out.
	require.NoError(t, config.WriteDefault(config.GlobalConfigPath(), &config.Config{
		Session:       config.SessionConfig{UserID: ""},
		Time:          config.TimeConfig{Zone: "UTC"},
		Notifications: config.DefaultConfig().Notifications,
		Log:           config.DefaultConfig().Log,
		Store:         config.DefaultConfig().Store,
	}, true))

	_, err := c.run("task", "add", "Nope")
	assert.ErrorIs(t, err, engine.ErrNoSession)
}
