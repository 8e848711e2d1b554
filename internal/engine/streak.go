package engine

import "cloud.google.com/go/civil"

// Streak counts consecutive calendar days ending at asOf that appear in
// dates. asOf itself must be present for a non-zero streak. Duplicates count
// once. Days are stepped on calendar components, so daylight-saving
// transitions cannot skip or repeat a day.
func Streak(dates []civil.Date, asOf civil.Date) int {
	if len(dates) == 0 {
		return 0
	}
	set := make(map[civil.Date]struct{}, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}

	streak := 0
	for day := asOf; ; day = day.AddDays(-1) {
		if _, ok := set[day]; !ok {
			return streak
		}
		streak++
	}
}

// BestStreak is the high-water mark of best and current.
func BestStreak(best, current int) int {
	if current > best {
		return current
	}
	return best
}

// DaysOf maps timestamps-derived days into a date list for Streak.
func DaysOf[T any](items []T, day func(T) (civil.Date, bool)) []civil.Date {
	out := make([]civil.Date, 0, len(items))
	for _, it := range items {
		if d, ok := day(it); ok {
			out = append(out, d)
		}
	}
	return out
}
