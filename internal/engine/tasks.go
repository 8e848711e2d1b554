package engine

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"arise/internal/storage"
)

type CreateTaskInput struct {
	Title       string
	Description string
	// DueDate defaults to today.
	DueDate          *civil.Date
	Priority         string
	Category         string
	ReminderTime     string
	EstimatedMinutes *int
}

// TaskPatch holds the fields to change; nil leaves a field alone and an
// empty ReminderTime clears the reminder.
type TaskPatch struct {
	Title            *string
	Description      *string
	DueDate          *civil.Date
	Priority         *string
	Category         *string
	ReminderTime     *string
	EstimatedMinutes *int
}

type TaskResult struct {
	Task *storage.Task
	// Changed is false when the task was already in the requested state.
	Changed bool
	XP      XPChange
	Overdue bool
	Message string
	// Habit is set when the task is linked to a habit whose completion set
	// was updated.
	Habit *HabitStreak
}

type HabitStreak struct {
	HabitID    string
	Title      string
	Streak     int
	BestStreak int
}

func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (*storage.Task, error) {
	userID, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}
	prio, err := ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}
	due := s.Today()
	if in.DueDate != nil {
		due = *in.DueDate
	}
	if !due.IsValid() {
		return nil, ValidationError{Field: "date", Reason: "invalid due date"}
	}
	reminder, err := optionalClock(in.ReminderTime)
	if err != nil {
		return nil, err
	}
	if in.EstimatedMinutes != nil && *in.EstimatedMinutes <= 0 {
		return nil, ValidationError{Field: "estimate", Reason: "must be positive"}
	}

	id, err := s.store.Tasks.Insert(ctx, storage.TaskInsert{
		UserID:           userID,
		Title:            title,
		Description:      optionalString(in.Description),
		DueDate:          due,
		Priority:         string(prio),
		Category:         categoryOrDefault(in.Category),
		ReminderTime:     reminder,
		EstimatedMinutes: in.EstimatedMinutes,
	})
	if err != nil {
		return nil, err
	}
	t, err := s.store.Tasks.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req, ok := TaskReminderDecision(*t, s.now(), s.loc); ok {
		s.dispatch(ctx, userID, req)
	}
	s.afterTaskMutation(ctx, userID)
	return t, nil
}

func (s *Service) getTask(ctx context.Context, userID, id string) (*storage.Task, error) {
	t, err := s.store.Tasks.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, NotFoundError{Kind: "task", ID: id}
	}
	return t, nil
}

// ToggleTask flips the completion state of a task.
func (s *Service) ToggleTask(ctx context.Context, id string) (*TaskResult, error) {
	userID, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	t, err := s.getTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t.Completed {
		return s.uncompleteTask(ctx, userID, t)
	}
	return s.completeTask(ctx, userID, t)
}

// CompleteTask marks a task done. Completing an overdue task earns no XP.
// Completing an already completed task is a no-op.
func (s *Service) CompleteTask(ctx context.Context, id string) (*TaskResult, error) {
	userID, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	t, err := s.getTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t.Completed {
		return &TaskResult{Task: t}, nil
	}
	return s.completeTask(ctx, userID, t)
}

// UncompleteTask reopens a task and takes back the XP its completion
// granted.
func (s *Service) UncompleteTask(ctx context.Context, id string) (*TaskResult, error) {
	userID, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	t, err := s.getTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !t.Completed {
		return &TaskResult{Task: t}, nil
	}
	return s.uncompleteTask(ctx, userID, t)
}

func (s *Service) completeTask(ctx context.Context, userID string, t *storage.Task) (*TaskResult, error) {
	now := s.now()
	decision := Decide(LedgerEvent{Kind: EventTaskCompleted, DueDate: t.DueDate, Today: DayOf(now, s.loc)})

	changed, err := s.store.Tasks.SetCompleted(ctx, userID, t.ID, true, now, decision.Delta)
	if err != nil {
		return nil, err
	}
	if !changed {
		// Lost a race with another completion.
		return &TaskResult{Task: t}, nil
	}

	xp, err := s.applyXP(ctx, userID, EventTaskCompleted, decision.Delta)
	if err != nil {
		if _, rerr := s.store.Tasks.SetCompleted(ctx, userID, t.ID, false, now, 0); rerr != nil {
			s.log.Error("revert task completion", zap.String("task_id", t.ID), zap.Error(rerr))
		}
		return nil, fmt.Errorf("award task xp: %w", err)
	}

	res := &TaskResult{Changed: true, XP: xp, Overdue: decision.Overdue, Message: decision.Message}
	if res.Habit, err = s.mirrorHabitCompletion(ctx, userID, *t, true); err != nil {
		return nil, err
	}

	if res.Task, err = s.getTask(ctx, userID, t.ID); err != nil {
		return nil, err
	}
	if t.ReminderTime != nil {
		s.dispatch(ctx, userID, CancelTaskReminder(t.ID))
	}
	s.afterTaskMutation(ctx, userID)

	s.log.Debug("task completed",
		zap.String("task_id", t.ID),
		zap.Int("xp", xp.Delta),
		zap.Bool("overdue", decision.Overdue),
	)
	return res, nil
}

func (s *Service) uncompleteTask(ctx context.Context, userID string, t *storage.Task) (*TaskResult, error) {
	decision := Decide(LedgerEvent{Kind: EventTaskUncompleted, Awarded: t.XPAwarded})

	changed, err := s.store.Tasks.SetCompleted(ctx, userID, t.ID, false, s.now(), 0)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &TaskResult{Task: t}, nil
	}

	xp, err := s.applyXP(ctx, userID, EventTaskUncompleted, decision.Delta)
	if err != nil {
		at := s.now()
		if t.CompletedAt != nil {
			at = *t.CompletedAt
		}
		if _, rerr := s.store.Tasks.SetCompleted(ctx, userID, t.ID, true, at, t.XPAwarded); rerr != nil {
			s.log.Error("revert task undo", zap.String("task_id", t.ID), zap.Error(rerr))
		}
		return nil, fmt.Errorf("revoke task xp: %w", err)
	}

	res := &TaskResult{Changed: true, XP: xp}
	if res.Habit, err = s.mirrorHabitCompletion(ctx, userID, *t, false); err != nil {
		return nil, err
	}

	if res.Task, err = s.getTask(ctx, userID, t.ID); err != nil {
		return nil, err
	}
	if req, ok := TaskReminderDecision(*res.Task, s.now(), s.loc); ok {
		s.dispatch(ctx, userID, req)
	}
	s.afterTaskMutation(ctx, userID)
	return res, nil
}

// mirrorHabitCompletion adds or removes the task's due date in the parent
// habit's completion set and recomputes the streak. Habit XP is not
// granted here: the task completion already paid.
func (s *Service) mirrorHabitCompletion(ctx context.Context, userID string, t storage.Task, completed bool) (*HabitStreak, error) {
	link := LinkOf(t)
	if link.Kind == LinkNone {
		return nil, nil
	}
	h, err := s.resolveHabit(ctx, userID, link)
	if err != nil || h == nil {
		return nil, err
	}

	if completed {
		_, err = s.store.Completions.Insert(ctx, userID, h.ID, t.DueDate)
	} else {
		_, err = s.store.Completions.Delete(ctx, userID, h.ID, t.DueDate)
	}
	if err != nil {
		return nil, fmt.Errorf("sync habit completion: %w", err)
	}
	return s.recomputeStreak(ctx, userID, h)
}

func (s *Service) resolveHabit(ctx context.Context, userID string, link HabitLink) (*storage.Habit, error) {
	switch link.Kind {
	case LinkByID:
		return s.store.Habits.Get(ctx, userID, link.HabitID)
	case LinkByLegacyTitle:
		habits, err := s.store.Habits.ListAll(ctx, userID)
		if err != nil {
			return nil, err
		}
		// "Habit: Read - 20 pages" may name "Read - 20 pages" or "Read"
		// with a cue; the exact title wins.
		var found *storage.Habit
		for i := range habits {
			if link.exactMatch(habits[i]) {
				return &habits[i], nil
			}
			if found == nil && link.Matches(habits[i]) {
				found = &habits[i]
			}
		}
		return found, nil
	}
	return nil, nil
}

// recomputeStreak derives the streak from the stored completion set as of
// today and persists it; best streak only ever grows.
func (s *Service) recomputeStreak(ctx context.Context, userID string, h *storage.Habit) (*HabitStreak, error) {
	dates, err := s.store.Habits.CompletedDates(ctx, h.ID)
	if err != nil {
		return nil, err
	}
	streak := Streak(dates, s.Today())
	best, err := s.store.Habits.SetStreak(ctx, userID, h.ID, streak)
	if err != nil {
		return nil, err
	}
	return &HabitStreak{HabitID: h.ID, Title: h.Title, Streak: streak, BestStreak: best}, nil
}

// UpdateTask edits task fields. Completion state and XP are not touched.
func (s *Service) UpdateTask(ctx context.Context, id string, p TaskPatch) (*storage.Task, error) {
	userID, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	t, err := s.getTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	hadReminder := t.ReminderTime != nil

	if p.Title != nil {
		if t.Title, err = normalizeTitle(*p.Title); err != nil {
			return nil, err
		}
	}
	if p.Description != nil {
		t.Description = optionalString(*p.Description)
	}
	if p.DueDate != nil {
		if !p.DueDate.IsValid() {
			return nil, ValidationError{Field: "date", Reason: "invalid due date"}
		}
		t.DueDate = *p.DueDate
	}
	if p.Priority != nil {
		prio, err := ParsePriority(*p.Priority)
		if err != nil {
			return nil, err
		}
		t.Priority = string(prio)
	}
	if p.Category != nil {
		t.Category = categoryOrDefault(*p.Category)
	}
	if p.ReminderTime != nil {
		if t.ReminderTime, err = optionalClock(*p.ReminderTime); err != nil {
			return nil, err
		}
	}
	if p.EstimatedMinutes != nil {
		if *p.EstimatedMinutes <= 0 {
			t.EstimatedMinutes = nil
		} else {
			t.EstimatedMinutes = p.EstimatedMinutes
		}
	}

	if err := s.store.Tasks.Update(ctx, *t); err != nil {
		return nil, err
	}

	if req, ok := TaskReminderDecision(*t, s.now(), s.loc); ok {
		s.dispatch(ctx, userID, req)
	} else if hadReminder {
		s.dispatch(ctx, userID, CancelTaskReminder(t.ID))
	}
	s.afterTaskMutation(ctx, userID)
	return t, nil
}

// DeleteTask removes a task. XP it granted is kept.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	userID, err := s.requireUser()
	if err != nil {
		return err
	}
	ok, err := s.store.Tasks.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return NotFoundError{Kind: "task", ID: id}
	}
	s.dispatch(ctx, userID, CancelTaskReminder(id))
	s.afterTaskMutation(ctx, userID)
	return nil
}

type TaskFilter struct {
	// Day limits the list to tasks due that day.
	Day *civil.Date
	// Open hides completed tasks.
	Open bool
}

func (s *Service) ListTasks(ctx context.Context, f TaskFilter) ([]storage.Task, error) {
	userID, ok := s.userID()
	if !ok {
		return nil, nil
	}
	var (
		tasks []storage.Task
		err   error
	)
	if f.Day != nil {
		tasks, err = s.store.Tasks.ListDueOn(ctx, userID, *f.Day)
	} else {
		tasks, err = s.store.Tasks.ListAll(ctx, userID)
	}
	if err != nil || !f.Open {
		return tasks, err
	}
	open := tasks[:0]
	for _, t := range tasks {
		if !t.Completed {
			open = append(open, t)
		}
	}
	return open, nil
}

// TaskOverdue reports whether t is open and past its due date.
func (s *Service) TaskOverdue(t storage.Task) bool {
	return !t.Completed && IsOverdue(t.DueDate, s.Today())
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func optionalClock(v string) (*string, error) {
	if v == "" {
		return nil, nil
	}
	c, err := NormalizeClock(v)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func categoryOrDefault(c string) string {
	if c == "" {
		return DefaultCategory
	}
	return c
}
