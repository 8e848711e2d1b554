package engine

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"

	"arise/internal/storage"
)

// Snapshot is everything the dashboard and achievements are derived from.
type Snapshot struct {
	Stats   storage.UserStats
	Tasks   []storage.Task
	Habits  []storage.Habit
	Journal []storage.JournalEntry
	Focus   []storage.FocusSession
}

// LoadSnapshot reads the user's records concurrently.
func (s *Service) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	userID, ok := s.userID()
	if !ok {
		return &Snapshot{}, nil
	}

	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st, err := s.store.Stats.GetOrCreate(gctx, userID)
		if err != nil {
			return err
		}
		snap.Stats = *st
		return nil
	})
	g.Go(func() (err error) {
		snap.Tasks, err = s.store.Tasks.ListAll(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.Habits, err = s.store.Habits.ListAll(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.Journal, err = s.store.Journal.ListAll(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.Focus, err = s.store.Focus.ListAll(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

type Stats struct {
	Level LevelInfo
	XP    int

	TotalTasks     int
	CompletedTasks int
	OverdueTasks   int
	TodayTasks     int
	TodayCompleted int
	TaskStreak     int

	Habits          int
	HabitsDoneToday int
	BestHabitStreak int

	JournalEntries int
	JournalStreak  int

	FocusSessions int
	FocusMinutes  int
	FocusStreak   int
}

// ComputeStats derives the dashboard numbers from snap as of today.
func ComputeStats(snap *Snapshot, today civil.Date, loc *time.Location) Stats {
	st := Stats{
		XP:    snap.Stats.XP,
		Level: CalculateLevelInfo(snap.Stats.XP),
	}

	for _, t := range snap.Tasks {
		st.TotalTasks++
		if t.Completed {
			st.CompletedTasks++
		} else if IsOverdue(t.DueDate, today) {
			st.OverdueTasks++
		}
		if t.DueDate == today {
			st.TodayTasks++
			if t.Completed {
				st.TodayCompleted++
			}
		}
	}
	st.TaskStreak = Streak(DaysOf(snap.Tasks, func(t storage.Task) (civil.Date, bool) {
		if !t.Completed || t.CompletedAt == nil {
			return civil.Date{}, false
		}
		return DayOf(*t.CompletedAt, loc), true
	}), today)

	for _, h := range snap.Habits {
		st.Habits++
		st.BestHabitStreak = BestStreak(st.BestHabitStreak, h.BestStreak)
		for _, d := range h.CompletedDates {
			if d == today {
				st.HabitsDoneToday++
				break
			}
		}
	}

	st.JournalEntries = len(snap.Journal)
	st.JournalStreak = Streak(DaysOf(snap.Journal, func(e storage.JournalEntry) (civil.Date, bool) {
		return DayOf(e.CreatedAt, loc), true
	}), today)

	for _, f := range snap.Focus {
		if f.Completed {
			st.FocusSessions++
			st.FocusMinutes += f.CompletedDuration
		}
	}
	st.FocusStreak = Streak(DaysOf(snap.Focus, func(f storage.FocusSession) (civil.Date, bool) {
		if !f.Completed || f.CompletedAt == nil {
			return civil.Date{}, false
		}
		return DayOf(*f.CompletedAt, loc), true
	}), today)

	return st
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	st := ComputeStats(snap, s.Today(), s.loc)
	return &st, nil
}

type HeatmapDay struct {
	Day   civil.Date
	Count int
}

// HabitHeatmap returns habit completions per day for the last days days,
// oldest first, including today.
func (s *Service) HabitHeatmap(ctx context.Context, days int) ([]HeatmapDay, error) {
	if days <= 0 {
		days = 30
	}
	today := s.Today()
	from := today.AddDays(-(days - 1))

	out := make([]HeatmapDay, 0, days)
	counts := map[civil.Date]int{}
	if userID, ok := s.userID(); ok {
		var err error
		if counts, err = s.store.Completions.CountByDay(ctx, userID, from, today); err != nil {
			return nil, err
		}
	}
	for d := from; !today.Before(d); d = d.AddDays(1) {
		out = append(out, HeatmapDay{Day: d, Count: counts[d]})
	}
	return out, nil
}
