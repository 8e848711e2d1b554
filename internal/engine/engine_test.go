package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arise/internal/notify"
	"arise/internal/storage"
)

const testUser = "user-1"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type testEnv struct {
	svc   *Service
	store *storage.Store
	rec   *notify.Recorder
	clock *fakeClock
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := storage.NewStore(db, LevelForTotalXP, storage.DefaultRetryPolicy)
	env := &testEnv{
		store: store,
		rec:   notify.NewRecorder(),
		clock: &fakeClock{now: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)},
	}
	base := []Option{
		WithSession(StaticSession(testUser)),
		WithNotifier(env.rec),
		WithClock(env.clock.Now),
		WithLocation(time.UTC),
	}
	env.svc = NewService(store, append(base, opts...)...)
	return env
}

func day(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (e *testEnv) xp(t *testing.T) int {
	t.Helper()
	st, err := e.store.Stats.GetOrCreate(context.Background(), testUser)
	require.NoError(t, err)
	return st.XP
}

func (e *testEnv) setXP(t *testing.T, xp int) {
	t.Helper()
	_, _, err := e.store.Stats.ApplyXP(context.Background(), testUser, "seed", "seed", xp)
	require.NoError(t, err)
}

func TestCalculateLevelInfo(t *testing.T) {
	cases := []struct {
		xp       int
		level    int
		rank     Rank
		current  int
		progress int
	}{
		{0, 1, RankE, 0, 0},
		{99, 1, RankE, 99, 99},
		{100, 2, RankE, 0, 0},
		{4900, 50, RankD, 0, 0},
		{14_950, 150, RankC, 50, 50},
		{89_999, 900, RankS, 99, 99},
		{99_900, 1000, RankS, 0, 0},
		{1_000_000, 1000, RankS, 900_100, 100},
	}
	for _, tc := range cases {
		info := CalculateLevelInfo(tc.xp)
		assert.Equal(t, tc.level, info.Level, "xp=%d", tc.xp)
		assert.Equal(t, tc.rank, info.Rank, "xp=%d", tc.xp)
		assert.Equal(t, tc.current, info.CurrentLevelXP, "xp=%d", tc.xp)
		assert.Equal(t, tc.progress, info.Progress, "xp=%d", tc.xp)
		assert.Equal(t, tc.level*BaseXPPerLevel, info.NextLevelXP, "xp=%d", tc.xp)
	}
}

func TestCalculateLevelInfoNegativeXPIsLevelOne(t *testing.T) {
	info := CalculateLevelInfo(-50)
	assert.Equal(t, 1, info.Level)
	assert.Equal(t, 0, info.Progress)
}

func TestLevelIsMonotonic(t *testing.T) {
	prev := LevelForTotalXP(0)
	for xp := 1; xp < 120_000; xp += 37 {
		l := LevelForTotalXP(xp)
		require.GreaterOrEqual(t, l, prev)
		require.LessOrEqual(t, l, MaxLevel)
		prev = l
	}
}

func TestRankTiersCoverEveryLevel(t *testing.T) {
	next := 1
	for _, tier := range RankTiers {
		require.Equal(t, next, tier.MinLevel)
		next = tier.MaxLevel + 1
	}
	require.Equal(t, MaxLevel+1, next)
}

func TestDecide(t *testing.T) {
	today := day("2024-03-15")
	cases := []struct {
		name string
		ev   LedgerEvent
		want LedgerDecision
	}{
		{"task on time", LedgerEvent{Kind: EventTaskCompleted, DueDate: today, Today: today}, LedgerDecision{Delta: 50}},
		{"task early", LedgerEvent{Kind: EventTaskCompleted, DueDate: today.AddDays(3), Today: today}, LedgerDecision{Delta: 50}},
		{"undo returns award", LedgerEvent{Kind: EventTaskUncompleted, Awarded: 50}, LedgerDecision{Delta: -50}},
		{"undo overdue completion", LedgerEvent{Kind: EventTaskUncompleted, Awarded: 0}, LedgerDecision{}},
		{"habit", LedgerEvent{Kind: EventHabitCompleted}, LedgerDecision{Delta: 30}},
		{"habit undo", LedgerEvent{Kind: EventHabitUncompleted}, LedgerDecision{}},
		{"journal", LedgerEvent{Kind: EventJournalCreated}, LedgerDecision{Delta: 20}},
		{"focus", LedgerEvent{Kind: EventFocusCompleted}, LedgerDecision{Delta: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, Decide(tc.ev)); diff != "" {
				t.Fatalf("Decide mismatch (-want +got):\n%s", diff)
			}
		})
	}

	overdue := Decide(LedgerEvent{Kind: EventTaskCompleted, DueDate: today.AddDays(-1), Today: today})
	assert.Zero(t, overdue.Delta)
	assert.True(t, overdue.Overdue)
	assert.Contains(t, overdue.Message, "2024-03-14")
}

func TestApplyDeltaClampsAtZero(t *testing.T) {
	assert.Equal(t, 0, ApplyDelta(30, -50))
	assert.Equal(t, 80, ApplyDelta(30, 50))
}

func TestStreak(t *testing.T) {
	asOf := day("2024-03-15")
	cases := []struct {
		name  string
		dates []civil.Date
		want  int
	}{
		{"empty", nil, 0},
		{"today only", []civil.Date{asOf}, 1},
		{"missing today", []civil.Date{asOf.AddDays(-1), asOf.AddDays(-2)}, 0},
		{"run with gap", []civil.Date{asOf, asOf.AddDays(-1), asOf.AddDays(-2), asOf.AddDays(-4)}, 3},
		{"duplicates", []civil.Date{asOf, asOf, asOf.AddDays(-1)}, 2},
		{"unordered", []civil.Date{asOf.AddDays(-2), asOf, asOf.AddDays(-1)}, 3},
		{"month boundary", []civil.Date{day("2024-03-01"), day("2024-02-29"), day("2024-02-28")}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Streak(tc.dates, asOf))
		})
	}
	assert.Equal(t, 3, Streak([]civil.Date{day("2024-03-01"), day("2024-02-29"), day("2024-02-28")}, day("2024-03-01")))
}

func TestStreakAcrossDaylightSaving(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// 2024-03-10 is 23 hours long in New York.
	var dates []civil.Date
	for _, ts := range []time.Time{
		time.Date(2024, 3, 9, 23, 30, 0, 0, ny),
		time.Date(2024, 3, 10, 23, 30, 0, 0, ny),
		time.Date(2024, 3, 11, 0, 30, 0, 0, ny),
	} {
		dates = append(dates, DayOf(ts, ny))
	}
	assert.Equal(t, 3, Streak(dates, day("2024-03-11")))
}

func TestBestStreakNeverDecreases(t *testing.T) {
	assert.Equal(t, 5, BestStreak(5, 2))
	assert.Equal(t, 7, BestStreak(5, 7))
}

func TestLinkOf(t *testing.T) {
	id := "h1"
	legacy := "Habit: Meditate - after coffee"
	other := "Call mom"
	cases := []struct {
		name string
		task storage.Task
		want HabitLink
	}{
		{"by id wins", storage.Task{HabitID: &id, Description: &legacy}, HabitLink{Kind: LinkByID, HabitID: "h1"}},
		{"legacy description", storage.Task{Description: &legacy}, HabitLink{Kind: LinkByLegacyTitle, Description: legacy}},
		{"plain task", storage.Task{Description: &other}, HabitLink{}},
		{"no description", storage.Task{}, HabitLink{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LinkOf(tc.task))
		})
	}
}

func TestLegacyLinkMatchesTitlesContainingSeparator(t *testing.T) {
	dashed := storage.Habit{ID: "h1", Title: "Read - 20 pages"}
	plain := storage.Habit{ID: "h2", Title: "Read"}
	walk := storage.Habit{ID: "h3", Title: "Walk"}

	cases := []struct {
		desc  string
		habit storage.Habit
		want  bool
	}{
		{"Habit: Read - 20 pages", dashed, true},
		{"Habit: Read - 20 pages - before bed", dashed, true},
		{"Habit: Read - 20 pages", plain, true},
		{"Habit: Read", plain, true},
		{"Habit: Read", dashed, false},
		{"Habit: Reading", plain, false},
		{"Habit: Read - 20 pages", walk, false},
	}
	for _, tc := range cases {
		t.Run(tc.desc+"/"+tc.habit.Title, func(t *testing.T) {
			desc := tc.desc
			assert.Equal(t, tc.want, LinkOf(storage.Task{Description: &desc}).Matches(tc.habit))
		})
	}
}

func TestPlanHabitTasks(t *testing.T) {
	today := day("2024-03-15")
	otherID := "h-other"
	legacy := LegacyDescription("Read")
	habits := []storage.Habit{
		{ID: "h1", Title: "Meditate", Frequency: "daily", Category: "Health"},
		{ID: "h2", Title: "Read", Frequency: "daily", Category: "Mind"},
		{ID: "h3", Title: "Run", Frequency: "daily"},
	}
	todays := []storage.Task{
		// Legacy row for "Read" without habit_id.
		{ID: "t1", Title: "Read", DueDate: today, Description: &legacy},
		// Titled like h3 but linked to another habit: must not satisfy h3.
		{ID: "t2", Title: "Run", DueDate: today, HabitID: &otherID, Description: &legacy},
	}

	plan := PlanHabitTasks(testUser, habits, todays, today, time.UTC)
	require.Len(t, plan.Create, 2)
	assert.Equal(t, "Meditate", plan.Create[0].Title)
	assert.Equal(t, "h1", *plan.Create[0].HabitID)
	assert.Equal(t, string(PriorityHigh), plan.Create[0].Priority)
	assert.Equal(t, "Health", plan.Create[0].Category)
	assert.Equal(t, today, plan.Create[0].DueDate)
	assert.Equal(t, "Habit: Meditate", *plan.Create[0].Description)
	assert.Equal(t, "h3", *plan.Create[1].HabitID)
	assert.Len(t, plan.Existing, 2)
}

func TestHabitDueOnWeekly(t *testing.T) {
	h := storage.Habit{Frequency: "weekly", CreatedAt: time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)} // Monday
	assert.True(t, HabitDueOn(h, day("2024-03-18"), time.UTC))
	assert.False(t, HabitDueOn(h, day("2024-03-19"), time.UTC))
	h.Frequency = "daily"
	assert.True(t, HabitDueOn(h, day("2024-03-19"), time.UTC))
}

func TestNotificationDecisions(t *testing.T) {
	rs := DefaultReminderSchedule
	req := TaskSummaryDecision(3, rs)
	assert.Equal(t, notify.KindRepeating, req.Kind)
	assert.Equal(t, int64(notify.TaskSummaryID), req.ID)
	assert.Equal(t, 18, req.Hour)

	assert.Equal(t, notify.KindCancel, TaskSummaryDecision(0, rs).Kind)

	j := JournalReminderDecision(false, rs)
	assert.Equal(t, notify.KindRepeating, j.Kind)
	assert.Equal(t, int64(notify.JournalReminderID), j.ID)
	assert.Equal(t, 21, j.Hour)
	assert.Equal(t, notify.KindCancel, JournalReminderDecision(true, rs).Kind)
}

func TestTaskReminderDecision(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	at := "10:30"
	past := "08:00"
	task := storage.Task{ID: "abc", Title: "Ship", DueDate: day("2024-03-15"), ReminderTime: &at}

	req, ok := TaskReminderDecision(task, now, time.UTC)
	require.True(t, ok)
	assert.Equal(t, notify.KindOneShot, req.Kind)
	assert.Equal(t, notify.ID("abc"), req.ID)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), req.At)
	assert.Equal(t, "abc", req.TaskID)

	task.ReminderTime = &past
	_, ok = TaskReminderDecision(task, now, time.UTC)
	assert.False(t, ok, "past reminders are skipped")

	task.ReminderTime = &at
	task.Completed = true
	_, ok = TaskReminderDecision(task, now, time.UTC)
	assert.False(t, ok, "completed tasks get no reminder")
}

func TestParseHelpers(t *testing.T) {
	today := day("2024-03-15")
	d, err := ParseDay("tomorrow", today)
	require.NoError(t, err)
	assert.Equal(t, day("2024-03-16"), d)

	_, err = ParseDay("15/03/2024", today)
	assert.True(t, IsValidation(err))

	c, err := NormalizeClock("7:05")
	require.NoError(t, err)
	assert.Equal(t, "07:05", c)
	_, err = NormalizeClock("24:00")
	assert.True(t, IsValidation(err))

	p, err := ParsePriority("H")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)
	_, err = ParseFrequency("monthly")
	assert.True(t, IsValidation(err))
}

// Scenario: an on-time task completion pays out and its undo takes it back.
func TestCompleteTaskOnTimeAndUndo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setXP(t, 80)

	today := env.svc.Today()
	task, err := env.svc.CreateTask(ctx, CreateTaskInput{Title: "Write report", DueDate: &today})
	require.NoError(t, err)

	res, err := env.svc.CompleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 50, res.XP.Delta)
	assert.Equal(t, 130, env.xp(t))
	assert.True(t, res.XP.LevelUp)
	assert.Equal(t, 2, res.XP.LevelAfter)
	assert.Equal(t, 50, res.Task.XPAwarded)

	again, err := env.svc.CompleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, 130, env.xp(t))

	undo, err := env.svc.UncompleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, -50, undo.XP.Delta)
	assert.Equal(t, 80, env.xp(t))
	assert.False(t, undo.Task.Completed)
}

// Scenario: two on-time completions from zero; the second crosses into
// level 2.
func TestTwoCompletionsFromZeroLevelUp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	today := env.svc.Today()
	first, err := env.svc.CreateTask(ctx, CreateTaskInput{Title: "First", DueDate: &today})
	require.NoError(t, err)
	second, err := env.svc.CreateTask(ctx, CreateTaskInput{Title: "Second", DueDate: &today})
	require.NoError(t, err)

	res, err := env.svc.CompleteTask(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, env.xp(t))
	assert.False(t, res.XP.LevelUp)
	assert.Equal(t, 1, res.XP.LevelAfter)

	res, err = env.svc.CompleteTask(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, env.xp(t))
	assert.True(t, res.XP.LevelUp)
	assert.Equal(t, 2, res.XP.LevelAfter)

	info, err := env.svc.LevelInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Level)
	assert.Equal(t, 0, info.Progress)
}

// Scenario: an overdue completion earns nothing and its undo costs nothing.
func TestCompleteOverdueTaskEarnsNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setXP(t, 80)

	yesterday := env.svc.Today().AddDays(-1)
	task, err := env.svc.CreateTask(ctx, CreateTaskInput{Title: "Late", DueDate: &yesterday})
	require.NoError(t, err)

	res, err := env.svc.CompleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, res.Overdue)
	assert.Zero(t, res.XP.Delta)
	assert.NotEmpty(t, res.Message)
	assert.Equal(t, 80, env.xp(t))

	undo, err := env.svc.UncompleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Zero(t, undo.XP.Delta)
	assert.Equal(t, 80, env.xp(t))
}

func TestUndoNeverDrivesXPNegative(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task, err := env.svc.CreateTask(ctx, CreateTaskInput{Title: "One"})
	require.NoError(t, err)
	_, err = env.svc.CompleteTask(ctx, task.ID)
	require.NoError(t, err)

	// Something else spent XP in the meantime.
	_, _, err = env.store.Stats.ApplyXP(ctx, testUser, "spend", "adjust", -40)
	require.NoError(t, err)

	_, err = env.svc.UncompleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, env.xp(t))
}

// Scenario: completing a habit twice in one day pays once; unchecking keeps XP.
func TestHabitCompletionIsIdempotentPerDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	h, err := env.svc.CreateHabit(ctx, CreateHabitInput{Title: "Meditate"})
	require.NoError(t, err)

	res, err := env.svc.CompleteHabit(ctx, h.ID)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 30, res.XP.Delta)
	assert.Equal(t, 1, res.Habit.Streak)
	assert.Equal(t, 1, res.Habit.BestStreak)

	again, err := env.svc.CompleteHabit(ctx, h.ID)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, 30, env.xp(t))
	assert.Len(t, again.Habit.CompletedDates, 1)

	undo, err := env.svc.UncompleteHabit(ctx, h.ID)
	require.NoError(t, err)
	assert.True(t, undo.Changed)
	assert.Equal(t, 0, undo.Habit.Streak)
	assert.Equal(t, 1, undo.Habit.BestStreak)
	assert.Empty(t, undo.Habit.CompletedDates)
	assert.Equal(t, 30, env.xp(t), "habit un-completion keeps XP")
}

func TestHabitStreakAcrossDays(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	h, err := env.svc.CreateHabit(ctx, CreateHabitInput{Title: "Run"})
	require.NoError(t, err)

	start := env.clock.Now()
	for i := 0; i < 3; i++ {
		env.clock.Set(start.AddDate(0, 0, i))
		_, err := env.svc.CompleteHabit(ctx, h.ID)
		require.NoError(t, err)
	}
	got, err := env.store.Habits.Get(ctx, testUser, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Streak)
	assert.Equal(t, 3, got.BestStreak)

	// Skip a day, then complete again: the streak restarts, best stays.
	env.clock.Set(start.AddDate(0, 0, 4))
	res, err := env.svc.CompleteHabit(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Habit.Streak)
	assert.Equal(t, 3, res.Habit.BestStreak)
}

// Scenario: creating a habit yields exactly one derived task for today, and
// completing it mirrors into the habit.
func TestHabitTaskSync(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	h, err := env.svc.CreateHabit(ctx, CreateHabitInput{Title: "Stretch", Category: "Health"})
	require.NoError(t, err)

	today := env.svc.Today()
	tasks, err := env.svc.ListTasks(ctx, TaskFilter{Day: &today})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	derived := tasks[0]
	assert.Equal(t, h.ID, *derived.HabitID)
	assert.Equal(t, "high", derived.Priority)
	assert.Equal(t, "Health", derived.Category)

	res, err := env.svc.RefreshHabitTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, 1, res.Existing)

	done, err := env.svc.CompleteTask(ctx, derived.ID)
	require.NoError(t, err)
	require.NotNil(t, done.Habit)
	assert.Equal(t, 1, done.Habit.Streak)
	assert.Equal(t, TaskCompletionXP, env.xp(t), "no extra habit XP for the derived task")

	got, err := env.store.Habits.Get(ctx, testUser, h.ID)
	require.NoError(t, err)
	assert.Equal(t, []civil.Date{today}, got.CompletedDates)

	_, err = env.svc.UncompleteTask(ctx, derived.ID)
	require.NoError(t, err)
	got, err = env.store.Habits.Get(ctx, testUser, h.ID)
	require.NoError(t, err)
	assert.Empty(t, got.CompletedDates)
	assert.Equal(t, 0, got.Streak)
}

func TestRefreshCreatesTasksOnNewDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateHabit(ctx, CreateHabitInput{Title: "Read"})
	require.NoError(t, err)

	env.clock.Set(env.clock.Now().AddDate(0, 0, 1))
	res, err := env.svc.RefreshHabitTasks(ctx)
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, env.svc.Today(), res.Created[0].DueDate)

	all, err := env.svc.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2, "yesterday's derived task is kept")
}

func TestRefreshRecognisesLegacyTasks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.Habits.Insert(ctx, storage.HabitInsert{UserID: testUser, Title: "Journal", Frequency: "daily", Category: DefaultCategory, Color: DefaultColor})
	require.NoError(t, err)
	desc := "Habit: Journal - before bed"
	_, err = env.store.Tasks.Insert(ctx, storage.TaskInsert{UserID: testUser, Title: "Journal", Description: &desc, DueDate: env.svc.Today(), Priority: "high", Category: DefaultCategory})
	require.NoError(t, err)

	res, err := env.svc.RefreshHabitTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Created)
}

func TestDeleteHabitRemovesLinkedTasks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	h, err := env.svc.CreateHabit(ctx, CreateHabitInput{Title: "Walk"})
	require.NoError(t, err)
	_, err = env.svc.CreateTask(ctx, CreateTaskInput{Title: "Unrelated"})
	require.NoError(t, err)
	env.clock.Set(env.clock.Now().AddDate(0, 0, 1))
	_, err = env.svc.RefreshHabitTasks(ctx)
	require.NoError(t, err)

	n, err := env.svc.DeleteHabit(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tasks, err := env.svc.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Unrelated", tasks[0].Title)

	_, err = env.svc.CompleteHabit(ctx, h.ID)
	assert.True(t, IsNotFound(err))
}

func TestLegacyTaskForTitleContainingSeparator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hid, err := env.store.Habits.Insert(ctx, storage.HabitInsert{UserID: testUser, Title: "Read - 20 pages", Frequency: "daily", Category: DefaultCategory, Color: DefaultColor})
	require.NoError(t, err)
	desc := "Habit: Read - 20 pages"
	legacyID, err := env.store.Tasks.Insert(ctx, storage.TaskInsert{UserID: testUser, Title: "Read - 20 pages", Description: &desc, DueDate: env.svc.Today(), Priority: "high", Category: DefaultCategory})
	require.NoError(t, err)

	res, err := env.svc.RefreshHabitTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Created, "legacy task already covers today")

	done, err := env.svc.CompleteTask(ctx, legacyID)
	require.NoError(t, err)
	require.NotNil(t, done.Habit)
	assert.Equal(t, hid, done.Habit.HabitID)

	n, err := env.svc.DeleteHabit(ctx, hid)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	left, err := env.svc.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, left)
}

// Scenario: deleting a habit removes every derived task, completed or not,
// including legacy rows that only carry the description convention.
func TestDeleteHabitCascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	h, err := env.svc.CreateHabit(ctx, CreateHabitInput{Title: "Walk"})
	require.NoError(t, err)
	first, err := env.svc.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, first, 1)
	_, err = env.svc.CompleteTask(ctx, first[0].ID)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		env.clock.Set(env.clock.Now().AddDate(0, 0, 1))
		res, err := env.svc.RefreshHabitTasks(ctx)
		require.NoError(t, err)
		require.Len(t, res.Created, 1)
	}

	desc := LegacyDescription("Walk")
	_, err = env.store.Tasks.Insert(ctx, storage.TaskInsert{UserID: testUser, Title: "Walk", Description: &desc, DueDate: day("2024-03-01"), Priority: "high", Category: DefaultCategory})
	require.NoError(t, err)
	_, err = env.svc.CreateTask(ctx, CreateTaskInput{Title: "Unrelated"})
	require.NoError(t, err)

	n, err := env.svc.DeleteHabit(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	tasks, err := env.svc.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Unrelated", tasks[0].Title)

	dates, err := env.store.Habits.CompletedDates(ctx, h.ID)
	require.NoError(t, err)
	assert.Empty(t, dates)
	habits, err := env.svc.ListHabits(ctx)
	require.NoError(t, err)
	assert.Empty(t, habits)
}

func TestCompletingYesterdaysHabitTaskBackfillsThatDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	h, err := env.svc.CreateHabit(ctx, CreateHabitInput{Title: "Floss"})
	require.NoError(t, err)
	yesterday := env.svc.Today()
	old, err := env.svc.ListTasks(ctx, TaskFilter{Day: &yesterday})
	require.NoError(t, err)
	require.Len(t, old, 1)

	env.clock.Set(env.clock.Now().AddDate(0, 0, 1))
	fresh, err := env.svc.RefreshHabitTasks(ctx)
	require.NoError(t, err)
	require.Len(t, fresh.Created, 1)

	res, err := env.svc.CompleteTask(ctx, old[0].ID)
	require.NoError(t, err)
	assert.True(t, res.Overdue)
	got, err := env.store.Habits.Get(ctx, testUser, h.ID)
	require.NoError(t, err)
	assert.Equal(t, []civil.Date{yesterday}, got.CompletedDates)
	assert.Equal(t, 0, got.Streak, "today is still open")

	res, err = env.svc.CompleteTask(ctx, fresh.Created[0].ID)
	require.NoError(t, err)
	require.NotNil(t, res.Habit)
	assert.Equal(t, 2, res.Habit.Streak)
	assert.Equal(t, 2, res.Habit.BestStreak)
}

// Scenario: the task summary tracks the open task count and the journal
// reminder disappears once an entry exists today.
func TestNotificationsFollowMutations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task, err := env.svc.CreateTask(ctx, CreateTaskInput{Title: "Plan", ReminderTime: "11:00"})
	require.NoError(t, err)

	summary, ok := env.rec.Scheduled(testUser, notify.TaskSummaryID)
	require.True(t, ok)
	assert.Equal(t, notify.KindRepeating, summary.Kind)
	_, ok = env.rec.Scheduled(testUser, notify.ID(task.ID))
	assert.True(t, ok, "task reminder scheduled")

	_, err = env.svc.CompleteTask(ctx, task.ID)
	require.NoError(t, err)
	_, ok = env.rec.Scheduled(testUser, notify.TaskSummaryID)
	assert.False(t, ok, "summary cancelled with no open tasks")
	_, ok = env.rec.Scheduled(testUser, notify.ID(task.ID))
	assert.False(t, ok, "reminder cancelled on completion")

	_, err = env.svc.UpdateJournalEntry(ctx, "missing", JournalInput{Title: "x"})
	assert.True(t, IsNotFound(err))

	entry, err := env.svc.AddJournalEntry(ctx, JournalInput{Title: "Day one", Content: "ok", Mood: 4, Tags: []string{"a", " a ", ""}})
	require.NoError(t, err)
	assert.Equal(t, JournalEntryXP, entry.XP.Delta)
	assert.Equal(t, []string{"a"}, entry.Entry.Tags)
	assert.Equal(t, "positive", entry.Entry.Sentiment)
	_, ok = env.rec.Scheduled(testUser, notify.JournalReminderID)
	assert.False(t, ok)

	require.NoError(t, env.svc.DeleteJournalEntry(ctx, entry.Entry.ID))
	j, ok := env.rec.Scheduled(testUser, notify.JournalReminderID)
	require.True(t, ok)
	assert.Equal(t, 21, j.Hour)
}

func TestNotifierFailureDoesNotFailMutation(t *testing.T) {
	env := newTestEnv(t)
	env.rec.Err = errors.New("platform unavailable")

	task, err := env.svc.CreateTask(context.Background(), CreateTaskInput{Title: "Still works", ReminderTime: "23:00"})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.NotEmpty(t, env.rec.Calls())
}

func TestDefaultNotifierIsOutbox(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(ctx, filepath.Join(t.TempDir(), "outbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := storage.NewStore(db, LevelForTotalXP, storage.DefaultRetryPolicy)
	svc := NewService(store, WithSession(StaticSession(testUser)))

	_, err = svc.CreateTask(ctx, CreateTaskInput{Title: "Outbox"})
	require.NoError(t, err)
	pending, err := svc.Reminders(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(notify.TaskSummaryID), pending[0].ID)
	assert.True(t, pending[0].Repeats)
}

func TestNoSession(t *testing.T) {
	env := newTestEnv(t, WithSession(StaticSession("")))
	ctx := context.Background()

	_, err := env.svc.CreateTask(ctx, CreateTaskInput{Title: "x"})
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = env.svc.CompleteHabit(ctx, "h")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, env.svc.DeleteAllData(ctx), ErrNoSession)

	tasks, err := env.svc.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
	res, err := env.svc.RefreshHabitTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Empty(t, env.rec.Calls())
}

func TestValidationLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateTask(ctx, CreateTaskInput{Title: "   "})
	assert.True(t, IsValidation(err))
	_, err = env.svc.CreateTask(ctx, CreateTaskInput{Title: "x", Priority: "urgent"})
	assert.True(t, IsValidation(err))
	_, err = env.svc.CreateHabit(ctx, CreateHabitInput{Title: "x", Frequency: "hourly"})
	assert.True(t, IsValidation(err))
	_, err = env.svc.LogMood(ctx, MoodInput{Mood: 9})
	assert.True(t, IsValidation(err))

	tasks, err := env.svc.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestConcurrentCompletionsAreNotLost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 6; i++ {
		task, err := env.svc.CreateTask(ctx, CreateTaskInput{Title: "parallel"})
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := env.svc.CompleteTask(ctx, id)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 6*TaskCompletionXP, env.xp(t))
}

func TestUpdateTaskReschedulesReminder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task, err := env.svc.CreateTask(ctx, CreateTaskInput{Title: "Call", ReminderTime: "12:00"})
	require.NoError(t, err)

	later := "15:45"
	updated, err := env.svc.UpdateTask(ctx, task.ID, TaskPatch{ReminderTime: &later})
	require.NoError(t, err)
	assert.Equal(t, "15:45", *updated.ReminderTime)
	req, ok := env.rec.Scheduled(testUser, notify.ID(task.ID))
	require.True(t, ok)
	assert.Equal(t, 15, req.At.Hour())

	none := ""
	_, err = env.svc.UpdateTask(ctx, task.ID, TaskPatch{ReminderTime: &none})
	require.NoError(t, err)
	_, ok = env.rec.Scheduled(testUser, notify.ID(task.ID))
	assert.False(t, ok)
}

func TestFocusSessionPaysOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fs, err := env.svc.StartFocusSession(ctx, FocusInput{Minutes: 25})
	require.NoError(t, err)
	assert.Equal(t, FocusModePomodoro, fs.Mode)

	res, err := env.svc.CompleteFocusSession(ctx, fs.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, FocusSessionXP, res.XP.Delta)
	again, err := env.svc.CompleteFocusSession(ctx, fs.ID, 25)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, FocusSessionXP, env.xp(t))
}

func TestFocusCompletionRetriesAfterXPFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fs, err := env.svc.StartFocusSession(ctx, FocusInput{Minutes: 25})
	require.NoError(t, err)

	_, err = env.store.DB().ExecContext(ctx, `
		CREATE TRIGGER xp_down BEFORE INSERT ON xp_events
		BEGIN SELECT RAISE(ABORT, 'store down'); END`)
	require.NoError(t, err)

	_, err = env.svc.CompleteFocusSession(ctx, fs.ID, 25)
	require.Error(t, err)
	got, err := env.store.Focus.Get(ctx, testUser, fs.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed, "completion reverted")

	_, err = env.store.DB().ExecContext(ctx, `DROP TRIGGER xp_down`)
	require.NoError(t, err)

	res, err := env.svc.CompleteFocusSession(ctx, fs.ID, 25)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, FocusSessionXP, env.xp(t))
}

func TestStatsAndAchievements(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task, err := env.svc.CreateTask(ctx, CreateTaskInput{Title: "A"})
	require.NoError(t, err)
	_, err = env.svc.CompleteTask(ctx, task.ID)
	require.NoError(t, err)
	h, err := env.svc.CreateHabit(ctx, CreateHabitInput{Title: "B"})
	require.NoError(t, err)
	_, err = env.svc.CompleteHabit(ctx, h.ID)
	require.NoError(t, err)
	_, err = env.svc.AddJournalEntry(ctx, JournalInput{Title: "C"})
	require.NoError(t, err)
	_, err = env.svc.RecordFocusSession(ctx, FocusInput{Mode: "deep", Minutes: 50})
	require.NoError(t, err)

	st, err := env.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50+30+20+10, st.XP)
	assert.Equal(t, 2, st.TotalTasks, "task plus the derived habit task")
	assert.Equal(t, 1, st.CompletedTasks)
	assert.Equal(t, 1, st.TaskStreak)
	assert.Equal(t, 1, st.HabitsDoneToday)
	assert.Equal(t, 1, st.JournalStreak)
	assert.Equal(t, 50, st.FocusMinutes)
	assert.Equal(t, 1, st.FocusStreak)

	heat, err := env.svc.HabitHeatmap(ctx, 7)
	require.NoError(t, err)
	require.Len(t, heat, 7)
	assert.Equal(t, env.svc.Today(), heat[6].Day)
	assert.Equal(t, 1, heat[6].Count)

	achievements, err := env.svc.Achievements(ctx)
	require.NoError(t, err)
	earned := map[string]bool{}
	for _, a := range achievements {
		earned[a.ID] = a.Earned
	}
	assert.True(t, earned["first_task"])
	assert.True(t, earned["habit_former"])
	assert.True(t, earned["first_entry"])
	assert.True(t, earned["first_focus"])
	assert.False(t, earned["rank_d"])
}

func TestDeleteAllData(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateTask(ctx, CreateTaskInput{Title: "A", ReminderTime: "20:00"})
	require.NoError(t, err)
	_, err = env.svc.CreateHabit(ctx, CreateHabitInput{Title: "B"})
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteAllData(ctx))
	tasks, err := env.svc.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
	habits, err := env.svc.ListHabits(ctx)
	require.NoError(t, err)
	assert.Empty(t, habits)
	assert.Empty(t, env.rec.Pending(testUser))
	assert.Equal(t, 0, env.xp(t))
}
