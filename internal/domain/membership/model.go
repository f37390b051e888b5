package membership

import (
	"strings"

	"orgconsole/internal/domain/academicyear"
)

// Membership is a student's membership for one academic year.
type Membership struct {
	MembershipID int64
	StudentID    string
	StudentName  string
	DateJoined   string
	Active       bool
	YearStart    int
	YearEnd      int
}

// Year returns the membership's academic year range.
func (m Membership) Year() academicyear.Range {
	return academicyear.Range{Start: m.YearStart, End: m.YearEnd}
}

// IsCurrent reports whether the membership belongs to the current academic year.
// INVARIANT: Membership is not mutated
func (m Membership) IsCurrent(current academicyear.Range) bool {
	return m.Year().IsCurrent(current)
}

// MatchesSearch reports whether q is a case-insensitive substring of the student's name or ID.
func (m Membership) MatchesSearch(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(m.StudentID), q) ||
		strings.Contains(strings.ToLower(m.StudentName), q)
}

// StudentIDs returns the student ID of each membership in order.
func StudentIDs(ms []Membership) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.StudentID
	}
	return out
}
