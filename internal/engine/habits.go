package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"arise/internal/storage"
)

type CreateHabitInput struct {
	Title        string
	Description  string
	Frequency    string
	Category     string
	Color        string
	ReminderTime string
}

type HabitPatch struct {
	Title        *string
	Description  *string
	Frequency    *string
	Category     *string
	Color        *string
	ReminderTime *string
}

type HabitResult struct {
	Habit *storage.Habit
	// Changed is false when today's completion was already in the requested
	// state.
	Changed bool
	XP      XPChange
}

// SyncResult reports what a habit-task refresh created.
type SyncResult struct {
	Created  []storage.Task
	Existing int
}

// CreateHabit stores a habit and materialises today's task for it.
func (s *Service) CreateHabit(ctx context.Context, in CreateHabitInput) (*storage.Habit, error) {
	userID, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}
	freq, err := ParseFrequency(in.Frequency)
	if err != nil {
		return nil, err
	}
	reminder, err := optionalClock(in.ReminderTime)
	if err != nil {
		return nil, err
	}
	color := in.Color
	if color == "" {
		color = DefaultColor
	}

	id, err := s.store.Habits.Insert(ctx, storage.HabitInsert{
		UserID:       userID,
		Title:        title,
		Description:  optionalString(in.Description),
		Frequency:    string(freq),
		Category:     categoryOrDefault(in.Category),
		Color:        color,
		ReminderTime: reminder,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.RefreshHabitTasks(ctx); err != nil {
		s.log.Warn("refresh habit tasks", zap.String("habit_id", id), zap.Error(err))
	}
	return s.getHabit(ctx, userID, id)
}

func (s *Service) getHabit(ctx context.Context, userID, id string) (*storage.Habit, error) {
	h, err := s.store.Habits.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, NotFoundError{Kind: "habit", ID: id}
	}
	return h, nil
}

// CompleteHabit records today in the habit's completion set. A second
// completion on the same day is a no-op and earns nothing.
func (s *Service) CompleteHabit(ctx context.Context, id string) (*HabitResult, error) {
	userID, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	h, err := s.getHabit(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	today := s.Today()

	inserted, err := s.store.Completions.Insert(ctx, userID, h.ID, today)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return &HabitResult{Habit: h}, nil
	}

	decision := Decide(LedgerEvent{Kind: EventHabitCompleted})
	xp, err := s.applyXP(ctx, userID, EventHabitCompleted, decision.Delta)
	if err != nil {
		if _, rerr := s.store.Completions.Delete(ctx, userID, h.ID, today); rerr != nil {
			s.log.Error("revert habit completion", zap.String("habit_id", h.ID), zap.Error(rerr))
		}
		return nil, fmt.Errorf("award habit xp: %w", err)
	}

	if _, err := s.recomputeStreak(ctx, userID, h); err != nil {
		return nil, err
	}
	if h, err = s.getHabit(ctx, userID, id); err != nil {
		return nil, err
	}
	s.log.Debug("habit completed", zap.String("habit_id", h.ID), zap.Int("streak", h.Streak))
	return &HabitResult{Habit: h, Changed: true, XP: xp}, nil
}

// UncompleteHabit removes today's completion only. XP is not revoked.
func (s *Service) UncompleteHabit(ctx context.Context, id string) (*HabitResult, error) {
	userID, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	h, err := s.getHabit(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	removed, err := s.store.Completions.Delete(ctx, userID, h.ID, s.Today())
	if err != nil {
		return nil, err
	}
	if !removed {
		return &HabitResult{Habit: h}, nil
	}
	if _, err := s.recomputeStreak(ctx, userID, h); err != nil {
		return nil, err
	}
	xp, err := s.applyXP(ctx, userID, EventHabitUncompleted, Decide(LedgerEvent{Kind: EventHabitUncompleted}).Delta)
	if err != nil {
		return nil, err
	}
	if h, err = s.getHabit(ctx, userID, id); err != nil {
		return nil, err
	}
	return &HabitResult{Habit: h, Changed: true, XP: xp}, nil
}

// ToggleHabit completes or un-completes today's instance.
func (s *Service) ToggleHabit(ctx context.Context, id string) (*HabitResult, error) {
	userID, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	h, err := s.getHabit(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	today := s.Today()
	for _, d := range h.CompletedDates {
		if d == today {
			return s.UncompleteHabit(ctx, id)
		}
	}
	return s.CompleteHabit(ctx, id)
}

func (s *Service) UpdateHabit(ctx context.Context, id string, p HabitPatch) (*storage.Habit, error) {
	userID, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	h, err := s.getHabit(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		if h.Title, err = normalizeTitle(*p.Title); err != nil {
			return nil, err
		}
	}
	if p.Description != nil {
		h.Description = optionalString(*p.Description)
	}
	if p.Frequency != nil {
		f, err := ParseFrequency(*p.Frequency)
		if err != nil {
			return nil, err
		}
		h.Frequency = string(f)
	}
	if p.Category != nil {
		h.Category = categoryOrDefault(*p.Category)
	}
	if p.Color != nil && *p.Color != "" {
		h.Color = *p.Color
	}
	if p.ReminderTime != nil {
		if h.ReminderTime, err = optionalClock(*p.ReminderTime); err != nil {
			return nil, err
		}
	}
	if err := s.store.Habits.Update(ctx, *h); err != nil {
		return nil, err
	}
	return h, nil
}

// DeleteHabit removes a habit, its completion history and every task
// derived from it. It returns the number of tasks removed.
func (s *Service) DeleteHabit(ctx context.Context, id string) (int, error) {
	userID, err := s.requireUser()
	if err != nil {
		return 0, err
	}
	h, err := s.getHabit(ctx, userID, id)
	if err != nil {
		return 0, err
	}
	tasks, err := s.store.Tasks.ListAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	ids := TasksLinkedTo(*h, tasks)

	n, _, err := s.store.Habits.DeleteWithTasks(ctx, userID, h.ID, ids)
	if err != nil {
		return 0, err
	}

	for _, tid := range ids {
		s.dispatch(ctx, userID, CancelTaskReminder(tid))
	}
	s.afterTaskMutation(ctx, userID)
	s.log.Debug("habit deleted", zap.String("habit_id", h.ID), zap.Int("tasks", n))
	return n, nil
}

// RefreshHabitTasks makes sure every habit due today has exactly one
// linked task due today. Running it twice creates nothing the second time.
func (s *Service) RefreshHabitTasks(ctx context.Context) (*SyncResult, error) {
	userID, ok := s.userID()
	if !ok {
		return &SyncResult{}, nil
	}
	today := s.Today()
	habits, err := s.store.Habits.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	todays, err := s.store.Tasks.ListDueOn(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	plan := PlanHabitTasks(userID, habits, todays, today, s.loc)
	res := &SyncResult{Existing: len(plan.Existing)}
	for _, in := range plan.Create {
		id, err := s.store.Tasks.Insert(ctx, in)
		if err != nil {
			return res, err
		}
		t, err := s.store.Tasks.Get(ctx, userID, id)
		if err != nil {
			return res, err
		}
		res.Created = append(res.Created, *t)
	}
	if len(res.Created) > 0 {
		s.afterTaskMutation(ctx, userID)
	}
	return res, nil
}

func (s *Service) ListHabits(ctx context.Context) ([]storage.Habit, error) {
	userID, ok := s.userID()
	if !ok {
		return nil, nil
	}
	return s.store.Habits.ListAll(ctx, userID)
}

// CompletedToday reports whether h has today in its completion set.
func (s *Service) CompletedToday(h storage.Habit) bool {
	today := s.Today()
	for _, d := range h.CompletedDates {
		if d == today {
			return true
		}
	}
	return false
}
