package engine

import (
	"time"

	"arise/internal/notify"
	"arise/internal/storage"
)

// Reminder defaults: the daily task review at 18:00 and the evening journal
// prompt at 21:00.
const (
	DefaultTaskSummaryHour     = 18
	DefaultJournalReminderHour = 21
)

// ReminderSchedule holds the configured times of the daily summaries.
type ReminderSchedule struct {
	TaskSummaryHour       int
	TaskSummaryMinute     int
	JournalReminderHour   int
	JournalReminderMinute int
}

var DefaultReminderSchedule = ReminderSchedule{
	TaskSummaryHour:     DefaultTaskSummaryHour,
	JournalReminderHour: DefaultJournalReminderHour,
}

// TaskSummaryDecision schedules the daily task review while anything is
// left to do and cancels it otherwise.
func TaskSummaryDecision(incomplete int, rs ReminderSchedule) notify.Request {
	if incomplete <= 0 {
		return notify.Cancel(notify.TaskSummaryID)
	}
	return notify.Request{
		Kind:   notify.KindRepeating,
		ID:     notify.TaskSummaryID,
		Title:  "Daily Task Review",
		Body:   "You have incomplete tasks. Time to wrap up!",
		Hour:   rs.TaskSummaryHour,
		Minute: rs.TaskSummaryMinute,
	}
}

// JournalReminderDecision cancels the evening prompt once today's entry exists.
func JournalReminderDecision(wroteToday bool, rs ReminderSchedule) notify.Request {
	if wroteToday {
		return notify.Cancel(notify.JournalReminderID)
	}
	return notify.Request{
		Kind:   notify.KindRepeating,
		ID:     notify.JournalReminderID,
		Title:  "Evening Journal",
		Body:   "How was your day? Take a moment to reflect.",
		Hour:   rs.JournalReminderHour,
		Minute: rs.JournalReminderMinute,
	}
}

// TaskReminderDecision returns the one-shot reminder for an open task whose
// reminder instant is strictly in the future. ok is false when nothing
// should be scheduled.
func TaskReminderDecision(t storage.Task, now time.Time, loc *time.Location) (req notify.Request, ok bool) {
	if t.Completed || t.ReminderTime == nil {
		return notify.Request{}, false
	}
	hour, minute, err := ParseClock(*t.ReminderTime)
	if err != nil {
		return notify.Request{}, false
	}
	at := At(t.DueDate, hour, minute, loc)
	if !at.After(now) {
		return notify.Request{}, false
	}
	return notify.Request{
		Kind:   notify.KindOneShot,
		ID:     notify.ID(t.ID),
		Title:  "Mission Reminder",
		Body:   "Incomplete: " + t.Title,
		At:     at,
		TaskID: t.ID,
	}, true
}

// CancelTaskReminder is the request removing a task's reminder.
func CancelTaskReminder(taskID string) notify.Request {
	return notify.Cancel(notify.ID(taskID))
}
