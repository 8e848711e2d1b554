package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arise/internal/notify"
)

func levelOf(xp int) int {
	l := xp/100 + 1
	if l > 1000 {
		l = 1000
	}
	return l
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, levelOf, DefaultRetryPolicy)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Migrate(context.Background(), s.DB()))
}

func TestApplyXPIsIdempotentPerKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ev, applied, err := s.Stats.ApplyXP(ctx, "u1", "k1", "task_complete", 50)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 0, ev.XPBefore)
	assert.Equal(t, 50, ev.XPAfter)

	again, applied, err := s.Stats.ApplyXP(ctx, "u1", "k1", "task_complete", 50)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, ev.XPAfter, again.XPAfter)

	st, err := s.Stats.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 50, st.XP)
	assert.Equal(t, 1, st.Level)
}

func TestApplyXPClampsAtZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.Stats.ApplyXP(ctx, "u1", "k1", "task_complete", 30)
	require.NoError(t, err)
	ev, applied, err := s.Stats.ApplyXP(ctx, "u1", "k2", "task_undo", -50)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 0, ev.XPAfter)
	assert.Equal(t, -30, ev.Delta)
}

func TestApplyXPConcurrentIncrementsAreNotLost(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Stats.ApplyXP(ctx, "u1", uuid.NewString(), "task_complete", 50)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	st, err := s.Stats.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, n*50, st.XP)
	assert.Equal(t, levelOf(n*50), st.Level)
}

func TestCompletionSetUniquePerDay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hid, err := s.Habits.Insert(ctx, HabitInsert{UserID: "u1", Title: "Read", Frequency: "daily", Category: "Personal", Color: "bg-primary"})
	require.NoError(t, err)
	day := civil.Date{Year: 2026, Month: 3, Day: 10}

	inserted, err := s.Completions.Insert(ctx, "u1", hid, day)
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = s.Completions.Insert(ctx, "u1", hid, day)
	require.NoError(t, err)
	assert.False(t, inserted, "second insert for the same day is a conflict")

	h, err := s.Habits.Get(ctx, "u1", hid)
	require.NoError(t, err)
	assert.Equal(t, []civil.Date{day}, h.CompletedDates)

	removed, err := s.Completions.Delete(ctx, "u1", hid, day.AddDays(-1))
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSetStreakKeepsBestAsHighWaterMark(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hid, err := s.Habits.Insert(ctx, HabitInsert{UserID: "u1", Title: "Run", Frequency: "daily", Category: "Health", Color: "bg-primary"})
	require.NoError(t, err)

	best, err := s.Habits.SetStreak(ctx, "u1", hid, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, best)
	best, err = s.Habits.SetStreak(ctx, "u1", hid, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, best)

	h, err := s.Habits.Get(ctx, "u1", hid)
	require.NoError(t, err)
	assert.Equal(t, 0, h.Streak)
	assert.Equal(t, 5, h.BestStreak)
}

func TestDeleteHabitCascadesCompletions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hid, err := s.Habits.Insert(ctx, HabitInsert{UserID: "u1", Title: "Stretch", Frequency: "daily", Category: "Health", Color: "bg-primary"})
	require.NoError(t, err)
	_, err = s.Completions.Insert(ctx, "u1", hid, civil.Date{Year: 2026, Month: 1, Day: 2})
	require.NoError(t, err)

	due := civil.Date{Year: 2026, Month: 1, Day: 2}
	linked, err := s.Tasks.Insert(ctx, TaskInsert{UserID: "u1", Title: "Stretch", DueDate: due, Priority: "high", Category: "Health", HabitID: &hid})
	require.NoError(t, err)
	other, err := s.Tasks.Insert(ctx, TaskInsert{UserID: "u1", Title: "Groceries", DueDate: due, Priority: "low", Category: "Personal"})
	require.NoError(t, err)

	n, ok, err := s.Habits.DeleteWithTasks(ctx, "u1", hid, []string{linked})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	dates, err := s.Habits.CompletedDates(ctx, hid)
	require.NoError(t, err)
	assert.Empty(t, dates)

	tasks, err := s.Tasks.ListAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, other, tasks[0].ID)
}

func TestDeleteHabitWithTasksRollsBackOnFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hid, err := s.Habits.Insert(ctx, HabitInsert{UserID: "u1", Title: "Stretch", Frequency: "daily", Category: "Health", Color: "bg-primary"})
	require.NoError(t, err)
	due := civil.Date{Year: 2026, Month: 1, Day: 2}
	linked, err := s.Tasks.Insert(ctx, TaskInsert{UserID: "u1", Title: "Stretch", DueDate: due, Priority: "high", Category: "Health", HabitID: &hid})
	require.NoError(t, err)

	_, err = s.DB().ExecContext(ctx, `
		CREATE TRIGGER block_habit_delete BEFORE DELETE ON habits
		BEGIN SELECT RAISE(ABORT, 'habit delete blocked'); END`)
	require.NoError(t, err)

	_, _, err = s.Habits.DeleteWithTasks(ctx, "u1", hid, []string{linked})
	require.Error(t, err)

	got, err := s.Tasks.Get(ctx, "u1", linked)
	require.NoError(t, err)
	assert.NotNil(t, got, "derived task must survive a failed habit delete")
}

func TestTaskSetCompletedIsStateful(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	due := civil.Date{Year: 2026, Month: 5, Day: 1}

	id, err := s.Tasks.Insert(ctx, TaskInsert{UserID: "u1", Title: "Ship", DueDate: due, Priority: "high", Category: "Work"})
	require.NoError(t, err)

	changed, err := s.Tasks.SetCompleted(ctx, "u1", id, true, due.In(time.UTC), 50)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.Tasks.SetCompleted(ctx, "u1", id, true, due.In(time.UTC), 50)
	require.NoError(t, err)
	assert.False(t, changed)

	task, err := s.Tasks.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.True(t, task.Completed)
	assert.Equal(t, 50, task.XPAwarded)
	assert.Equal(t, due, task.DueDate)

	n, err := s.Tasks.CountIncomplete(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	changed, err = s.Tasks.SetCompleted(ctx, "u1", id, false, due.In(time.UTC), 50)
	require.NoError(t, err)
	assert.True(t, changed)
	task, err = s.Tasks.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.False(t, task.Completed)
	assert.Nil(t, task.CompletedAt)
	assert.Equal(t, 0, task.XPAwarded)
}

func TestNotificationOutboxOverwritesByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Notifications.Schedule(ctx, "u1", notify.Request{Kind: notify.KindRepeating, ID: notify.TaskSummaryID, Title: "a", Hour: 18}))
	require.NoError(t, s.Notifications.Schedule(ctx, "u1", notify.Request{Kind: notify.KindRepeating, ID: notify.TaskSummaryID, Title: "b", Hour: 19}))

	list, err := s.Notifications.ListAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].Title)
	assert.Equal(t, 19, list[0].Hour)
	assert.True(t, list[0].Repeats)

	require.NoError(t, s.Notifications.Cancel(ctx, "u1", notify.TaskSummaryID))
	list, err = s.Notifications.ListAll(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteUserDataOnlyTouchesThatUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	due := civil.Date{Year: 2026, Month: 5, Day: 1}

	_, err := s.Tasks.Insert(ctx, TaskInsert{UserID: "u1", Title: "a", DueDate: due, Priority: "low", Category: "x"})
	require.NoError(t, err)
	_, err = s.Tasks.Insert(ctx, TaskInsert{UserID: "u2", Title: "b", DueDate: due, Priority: "low", Category: "x"})
	require.NoError(t, err)
	_, _, err = s.Stats.ApplyXP(ctx, "u1", "k", "journal_entry", 20)
	require.NoError(t, err)

	require.NoError(t, s.DeleteUserData(ctx, "u1"))

	u1, err := s.Tasks.ListAll(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, u1)
	u2, err := s.Tasks.ListAll(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, u2, 1)
	st, err := s.Stats.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, st)
}
