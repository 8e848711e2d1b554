package engine

import (
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
)

// ParsePriority parses user input to a Priority.
// Empty input returns DefaultPriority.
func ParsePriority(input string) (Priority, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	switch s {
	case "":
		return DefaultPriority, nil
	case "h", "hi":
		return PriorityHigh, nil
	case "m", "med":
		return PriorityMedium, nil
	case "l", "lo":
		return PriorityLow, nil
	}
	p := Priority(s)
	if !p.IsValid() {
		return "", ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", input)}
	}
	return p, nil
}

func ParseFrequency(input string) (Frequency, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	if s == "" {
		return FrequencyDaily, nil
	}
	f := Frequency(s)
	if !f.IsValid() {
		return "", ValidationError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %q", input)}
	}
	return f, nil
}

// ParseClock validates an HH:MM time of day and returns its parts.
func ParseClock(input string) (hour, minute int, err error) {
	s := strings.TrimSpace(input)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, ValidationError{Field: "time", Reason: fmt.Sprintf("%q is not HH:MM", input)}
	}
	hour, err1 := strconv.Atoi(hh)
	minute, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 || len(mm) != 2 {
		return 0, 0, ValidationError{Field: "time", Reason: fmt.Sprintf("%q is not HH:MM", input)}
	}
	return hour, minute, nil
}

// NormalizeClock returns input in canonical zero-padded HH:MM form.
func NormalizeClock(input string) (string, error) {
	h, m, err := ParseClock(input)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

// ParseDay parses YYYY-MM-DD, or the words today/tomorrow/yesterday
// relative to today.
func ParseDay(input string, today civil.Date) (civil.Date, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	switch s {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	case "yesterday":
		return today.AddDays(-1), nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD", input)}
	}
	return d, nil
}

func normalizeTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", ValidationError{Field: "title", Reason: "title is required"}
	}
	return t, nil
}
