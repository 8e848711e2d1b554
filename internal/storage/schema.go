package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_stats (
			user_id TEXT PRIMARY KEY,
			xp INTEGER NOT NULL DEFAULT 0 CHECK (xp >= 0),
			level INTEGER NOT NULL DEFAULT 1,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		// One row per applied XP delta; key makes re-application a no-op.
		`CREATE TABLE IF NOT EXISTS xp_events (
			key TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			delta INTEGER NOT NULL,
			xp_before INTEGER NOT NULL,
			xp_after INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS habits (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			frequency TEXT NOT NULL DEFAULT 'daily',
			category TEXT NOT NULL DEFAULT 'Personal',
			color TEXT NOT NULL DEFAULT 'bg-primary',
			reminder_time TEXT,
			streak INTEGER NOT NULL DEFAULT 0,
			best_streak INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS habit_completions (
			habit_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			completed_date TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (habit_id, completed_date),
			FOREIGN KEY(habit_id) REFERENCES habits(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			completed INTEGER NOT NULL DEFAULT 0,
			completed_at DATETIME,
			due_date TEXT NOT NULL,
			priority TEXT NOT NULL DEFAULT 'medium',
			category TEXT NOT NULL DEFAULT 'Personal',
			habit_id TEXT NULL,
			reminder_time TEXT,
			estimated_minutes INTEGER,
			xp_awarded INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS journal_entries (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			mood INTEGER NOT NULL DEFAULT 0,
			tags TEXT,
			sentiment TEXT NOT NULL DEFAULT 'neutral',
			created_at DATETIME NOT NULL,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS focus_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			duration INTEGER NOT NULL,
			completed_duration INTEGER NOT NULL DEFAULT 0,
			task_id TEXT,
			task_title TEXT,
			started_at DATETIME NOT NULL,
			completed_at DATETIME,
			completed INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS mood_logs (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			mood INTEGER NOT NULL,
			energy INTEGER,
			log_date TEXT NOT NULL,
			note TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT 'bg-primary',
			UNIQUE (user_id, name)
		);`,
		`CREATE TABLE IF NOT EXISTS scheduled_notifications (
			id INTEGER NOT NULL,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			repeats INTEGER NOT NULL DEFAULT 0,
			hour INTEGER NOT NULL DEFAULT 0,
			minute INTEGER NOT NULL DEFAULT 0,
			at DATETIME,
			extra TEXT NOT NULL DEFAULT '',
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_due ON tasks(user_id, due_date);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_habit_id ON tasks(habit_id);`,
		`CREATE INDEX IF NOT EXISTS idx_habit_completions_user ON habit_completions(user_id, completed_date);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_user_created ON journal_entries(user_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_focus_user_started ON focus_sessions(user_id, started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_xp_events_user ON xp_events(user_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Columns added after the first release (ignore if already present).
	alterStmts := []string{
		`ALTER TABLE tasks ADD COLUMN estimated_minutes INTEGER;`,
		`ALTER TABLE habits ADD COLUMN reminder_time TEXT;`,
	}
	for _, stmt := range alterStmts {
		_, err := db.ExecContext(ctx, stmt)
		if err != nil && !strings.Contains(err.Error(), "duplicate column") {
			return fmt.Errorf("migrate alter: %w", err)
		}
	}

	return nil
}
