package period

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Period selects a reporting window relative to now.
type Period string

const (
	Daily   Period = "DAILY"
	Weekly  Period = "WEEKLY"
	Monthly Period = "MONTHLY"
	Yearly  Period = "YEARLY"
	AllTime Period = "ALL_TIME"
)

// All lists every period in display order.
var All = []Period{Daily, Weekly, Monthly, Yearly, AllTime}

// ErrUnknownPeriod is returned by Parse for unrecognised input.
var ErrUnknownPeriod = errors.New("unknown period")

// Parse accepts a period name case-insensitively. Empty input means AllTime.
func Parse(s string) (Period, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return AllTime, nil
	}
	for _, p := range All {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}

// Window is an inclusive time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Range returns the window containing now, in now's location.
// Weeks start on Monday. Every window ends at 23:59:59 of its last day.
// PRE: none
// POST: ok is false for AllTime, which has no bounds
func (p Period) Range(now time.Time) (w Window, ok bool) {
	y, m, d := now.Date()
	loc := now.Location()
	var start, last time.Time
	switch p {
	case Daily:
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
		last = start
	case Weekly:
		offset := (int(now.Weekday()) + 6) % 7
		start = time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
		last = start.AddDate(0, 0, 6)
	case Monthly:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		last = time.Date(y, m+1, 0, 0, 0, 0, 0, loc)
	case Yearly:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		last = time.Date(y, time.December, 31, 0, 0, 0, 0, loc)
	default:
		return Window{}, false
	}
	ly, lm, ld := last.Date()
	return Window{Start: start, End: time.Date(ly, lm, ld, 23, 59, 59, 0, loc)}, true
}

// Label is the human-readable name of the period.
func (p Period) Label() string {
	switch p {
	case Daily:
		return "Today"
	case Weekly:
		return "This week"
	case Monthly:
		return "This month"
	case Yearly:
		return "This year"
	}
	return "All time"
}
