package engine

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// Fixed rewards per event.
const (
	TaskCompletionXP  = 50
	HabitCompletionXP = 30
	JournalEntryXP    = 20
	FocusSessionXP    = 10
)

type EventKind string

const (
	EventTaskCompleted    EventKind = "task_complete"
	EventTaskUncompleted  EventKind = "task_undo"
	EventHabitCompleted   EventKind = "habit_complete"
	EventHabitUncompleted EventKind = "habit_undo"
	EventJournalCreated   EventKind = "journal_entry"
	EventFocusCompleted   EventKind = "focus_session"
)

// LedgerEvent is the input of the XP policy.
type LedgerEvent struct {
	Kind EventKind
	// DueDate and Today are used for task completion.
	DueDate civil.Date
	Today   civil.Date
	// Awarded is what the completion being undone granted.
	Awarded int
}

// LedgerDecision is the XP delta the policy grants for an event.
type LedgerDecision struct {
	Delta   int
	Overdue bool
	// Message is an informational note for the user, e.g. why no XP was given.
	Message string
}

// IsOverdue reports whether due is strictly before today.
func IsOverdue(due, today civil.Date) bool {
	return due.Before(today)
}

// Decide applies the XP rules:
//   - completing an overdue task grants nothing;
//   - undoing a task takes back exactly what its completion granted;
//   - habit un-completion never revokes XP;
//   - journal entries and focus sessions have no deduction path.
func Decide(ev LedgerEvent) LedgerDecision {
	switch ev.Kind {
	case EventTaskCompleted:
		if IsOverdue(ev.DueDate, ev.Today) {
			return LedgerDecision{
				Overdue: true,
				Message: fmt.Sprintf("Task was due %s; overdue completions earn no XP.", ev.DueDate),
			}
		}
		return LedgerDecision{Delta: TaskCompletionXP}
	case EventTaskUncompleted:
		if ev.Awarded <= 0 {
			return LedgerDecision{}
		}
		return LedgerDecision{Delta: -ev.Awarded}
	case EventHabitCompleted:
		return LedgerDecision{Delta: HabitCompletionXP}
	case EventHabitUncompleted:
		return LedgerDecision{}
	case EventJournalCreated:
		return LedgerDecision{Delta: JournalEntryXP}
	case EventFocusCompleted:
		return LedgerDecision{Delta: FocusSessionXP}
	default:
		return LedgerDecision{}
	}
}

// ApplyDelta returns xp+delta floored at zero.
func ApplyDelta(xp, delta int) int {
	next := xp + delta
	if next < 0 {
		return 0
	}
	return next
}

// XPChange describes the outcome of one XP mutation.
type XPChange struct {
	Kind        EventKind
	Delta       int
	XPBefore    int
	XPAfter     int
	LevelBefore int
	LevelAfter  int
	LevelUp     bool
	Info        LevelInfo
}

func NewXPChange(kind EventKind, before, after int) XPChange {
	lb := LevelForTotalXP(before)
	la := LevelForTotalXP(after)
	return XPChange{
		Kind:        kind,
		Delta:       after - before,
		XPBefore:    before,
		XPAfter:     after,
		LevelBefore: lb,
		LevelAfter:  la,
		LevelUp:     la > lb,
		Info:        CalculateLevelInfo(after),
	}
}
