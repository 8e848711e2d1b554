package engine

import (
	"time"

	"cloud.google.com/go/civil"
)

// DayOf returns the calendar day of t in loc.
func DayOf(t time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.Local
	}
	return civil.DateOf(t.In(loc))
}

// StartOfDay returns midnight of day in loc.
func StartOfDay(day civil.Date, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return day.In(loc)
}

// At returns the instant of day at hour:minute in loc.
func At(day civil.Date, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(day.Year, day.Month, day.Day, hour, minute, 0, 0, loc)
}
