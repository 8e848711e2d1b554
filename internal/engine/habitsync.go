package engine

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"arise/internal/storage"
)

// legacyHabitPrefix marks tasks derived from a habit before tasks carried a
// habit_id: their description reads "Habit: <habit title>[ - <cue>]".
const legacyHabitPrefix = "Habit: "

type LinkKind int

const (
	LinkNone LinkKind = iota
	LinkByID
	// LinkByLegacyTitle is deprecated; remove once all rows carry habit_id.
	LinkByLegacyTitle
)

// HabitLink is how a task points at its parent habit. Legacy links keep
// the raw description since habit titles may themselves contain " - ".
type HabitLink struct {
	Kind        LinkKind
	HabitID     string
	Description string
}

// LinkOf resolves the link of t: habit_id first, the legacy description
// convention only when no id is present.
func LinkOf(t storage.Task) HabitLink {
	if t.HabitID != nil && *t.HabitID != "" {
		return HabitLink{Kind: LinkByID, HabitID: *t.HabitID}
	}
	if t.Description == nil {
		return HabitLink{}
	}
	desc := strings.TrimSpace(*t.Description)
	rest, ok := strings.CutPrefix(desc, legacyHabitPrefix)
	if !ok || strings.TrimSpace(rest) == "" {
		return HabitLink{}
	}
	return HabitLink{Kind: LinkByLegacyTitle, Description: desc}
}

// Matches reports whether the link points at h.
func (l HabitLink) Matches(h storage.Habit) bool {
	switch l.Kind {
	case LinkByID:
		return l.HabitID == h.ID
	case LinkByLegacyTitle:
		want := LegacyDescription(h.Title)
		return l.Description == want || strings.HasPrefix(l.Description, want+" - ")
	default:
		return false
	}
}

// exactMatch reports whether a legacy link names h without a trailing cue.
func (l HabitLink) exactMatch(h storage.Habit) bool {
	return l.Kind == LinkByLegacyTitle && l.Description == LegacyDescription(h.Title)
}

// IsHabitTask reports whether t was derived from any habit.
func IsHabitTask(t storage.Task) bool {
	return LinkOf(t).Kind != LinkNone
}

// LegacyDescription is the description written on derived tasks so clients
// that predate habit_id still recognise them.
func LegacyDescription(habitTitle string) string {
	return legacyHabitPrefix + habitTitle
}

// HabitDueOn reports whether h expects an instance on day. Daily and custom
// habits recur every day; weekly habits recur on the weekday they were
// created.
func HabitDueOn(h storage.Habit, day civil.Date, loc *time.Location) bool {
	switch Frequency(h.Frequency) {
	case FrequencyWeekly:
		created := DayOf(h.CreatedAt, loc)
		return StartOfDay(created, loc).Weekday() == StartOfDay(day, loc).Weekday()
	default:
		return true
	}
}

// SyncPlan is the outcome of reconciling habits against today's tasks.
type SyncPlan struct {
	Create []storage.TaskInsert
	// Existing are today's tasks already linked to a habit; left alone.
	Existing []storage.Task
}

// PlanHabitTasks returns one task to create for every habit due today that
// has no linked task due today. Past-due derived tasks are not considered
// and never removed.
func PlanHabitTasks(userID string, habits []storage.Habit, todays []storage.Task, today civil.Date, loc *time.Location) SyncPlan {
	var plan SyncPlan
	for _, t := range todays {
		if t.DueDate == today && IsHabitTask(t) {
			plan.Existing = append(plan.Existing, t)
		}
	}

	for _, h := range habits {
		if !HabitDueOn(h, today, loc) {
			continue
		}
		if hasLinkedTask(h, plan.Existing) {
			continue
		}
		habitID := h.ID
		desc := LegacyDescription(h.Title)
		plan.Create = append(plan.Create, storage.TaskInsert{
			UserID:      userID,
			Title:       h.Title,
			Description: &desc,
			DueDate:     today,
			Priority:    string(PriorityHigh),
			Category:    h.Category,
			HabitID:     &habitID,
		})
	}
	return plan
}

// hasLinkedTask matches by id first; a legacy title match only counts for
// tasks without a habit_id.
func hasLinkedTask(h storage.Habit, tasks []storage.Task) bool {
	for _, t := range tasks {
		if LinkOf(t).Matches(h) {
			return true
		}
	}
	return false
}

// TasksLinkedTo returns the ids of every task belonging to h, including
// legacy rows recognised by their description.
func TasksLinkedTo(h storage.Habit, tasks []storage.Task) []string {
	var ids []string
	for _, t := range tasks {
		if LinkOf(t).Matches(h) {
			ids = append(ids, t.ID)
		}
	}
	return ids
}
