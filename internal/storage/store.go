package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Store bundles the repositories over one database handle.
type Store struct {
	db            *sql.DB
	Stats         *StatsRepo
	Tasks         *TaskRepo
	Habits        *HabitRepo
	Completions   *CompletionRepo
	Journal       *JournalRepo
	Focus         *FocusRepo
	Moods         *MoodRepo
	Categories    *CategoryRepo
	Notifications *NotificationRepo
}

func NewStore(db *sql.DB, level LevelFunc, retry RetryPolicy) *Store {
	return &Store{
		db:            db,
		Stats:         NewStatsRepo(db, level, retry),
		Tasks:         NewTaskRepo(db),
		Habits:        NewHabitRepo(db),
		Completions:   NewCompletionRepo(db),
		Journal:       NewJournalRepo(db),
		Focus:         NewFocusRepo(db),
		Moods:         NewMoodRepo(db),
		Categories:    NewCategoryRepo(db),
		Notifications: NewNotificationRepo(db),
	}
}

func (s *Store) DB() *sql.DB { return s.db }

// userTables lists every table holding per-user rows, children first.
var userTables = []string{
	"habit_completions",
	"tasks",
	"habits",
	"journal_entries",
	"focus_sessions",
	"mood_logs",
	"categories",
	"scheduled_notifications",
	"xp_events",
	"user_stats",
}

// DeleteUserData removes every row belonging to userID in one transaction.
func (s *Store) DeleteUserData(ctx context.Context, userID string) error {
	return WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, table := range userTables {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ?`, userID); err != nil {
				return fmt.Errorf("delete user data from %s: %w", table, err)
			}
		}
		return nil
	})
}
