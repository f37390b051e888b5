package academicyear

import (
	"errors"
	"fmt"
	"time"
)

// DefaultCutover is the month in which a new academic year begins.
const DefaultCutover = time.August

// Status labels shown next to a selected range.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// Domain errors
var (
	ErrInvalidRange = errors.New("academic year start must be before end")
)

// Range is a backend classification period expressed as a start/end year pair.
type Range struct {
	Start int
	End   int
}

// FromStart builds the range that begins in the given year.
// POST: End == Start+1
func FromStart(start int) Range {
	return Range{Start: start, End: start + 1}
}

// Current returns the academic year containing now.
// PRE: cutover is a valid month
// POST: Returns the range starting this calendar year if now is on or after the cutover month, otherwise last year's
func Current(now time.Time, cutover time.Month) Range {
	if now.Month() >= cutover {
		return FromStart(now.Year())
	}
	return FromStart(now.Year() - 1)
}

// Validate checks that the range is ordered.
// PRE: none
// POST: Returns ErrInvalidRange if Start >= End
func (r Range) Validate() error {
	if r.Start >= r.End {
		return ErrInvalidRange
	}
	return nil
}

// IsCurrent reports whether r starts in the same year as current.
func (r Range) IsCurrent(current Range) bool {
	return r.Start == current.Start
}

// Status returns ACTIVE for the current academic year and INACTIVE otherwise.
func (r Range) Status(current Range) string {
	if r.IsCurrent(current) {
		return StatusActive
	}
	return StatusInactive
}

// String formats the range as "2025-2026".
func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Options returns selectable ranges around current: one year back and two ahead.
func Options(current Range) []Range {
	out := make([]Range, 0, 4)
	for start := current.Start - 1; start <= current.Start+2; start++ {
		out = append(out, FromStart(start))
	}
	return out
}
