package storage

import (
	"time"

	"cloud.google.com/go/civil"
)

// UserStats is the per-user progression record. Level is a cache of the
// level derived from XP and is rewritten on every XP change.
type UserStats struct {
	UserID    string
	XP        int
	Level     int
	UpdatedAt time.Time
}

type Task struct {
	ID               string
	UserID           string
	Title            string
	Description      *string
	Completed        bool
	CompletedAt      *time.Time
	DueDate          civil.Date
	Priority         string
	Category         string
	HabitID          *string
	ReminderTime     *string // HH:MM, local time
	EstimatedMinutes *int
	XPAwarded        int // XP granted by the completion currently in effect
	CreatedAt        time.Time
}

type Habit struct {
	ID             string
	UserID         string
	Title          string
	Description    *string
	Frequency      string
	Category       string
	Color          string
	ReminderTime   *string
	Streak         int
	BestStreak     int
	CompletedDates []civil.Date
	CreatedAt      time.Time
}

type HabitCompletion struct {
	HabitID       string
	UserID        string
	CompletedDate civil.Date
	CreatedAt     time.Time
}

type JournalEntry struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	Mood      int
	Tags      []string
	Sentiment string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

type FocusSession struct {
	ID                string
	UserID            string
	Mode              string
	Duration          int // planned minutes
	CompletedDuration int // minutes actually focused
	TaskID            *string
	TaskTitle         *string
	StartedAt         time.Time
	CompletedAt       *time.Time
	Completed         bool
}

type MoodLog struct {
	ID      string
	UserID  string
	Mood    int
	Energy  *int
	LogDate civil.Date
	Note    *string
}

type Category struct {
	ID     string
	UserID string
	Name   string
	Color  string
}

// XPEvent is an applied XP delta. Key is the idempotency key of the event.
type XPEvent struct {
	Key       string
	UserID    string
	Kind      string
	Delta     int
	XPBefore  int
	XPAfter   int
	CreatedAt time.Time
}

// ScheduledNotification is a row of the reminders outbox.
type ScheduledNotification struct {
	ID        int64
	UserID    string
	Title     string
	Body      string
	Repeats   bool
	Hour      int
	Minute    int
	At        *time.Time
	Extra     string
	UpdatedAt time.Time
}
