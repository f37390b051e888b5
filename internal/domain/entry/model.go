package entry

import (
	"regexp"
	"strings"
)

// pasteSeparators matches runs of commas and whitespace (newlines included).
var pasteSeparators = regexp.MustCompile(`[,\s]+`)

// Entry is one pending identifier awaiting bulk submission.
type Entry struct {
	ID    int
	Value string
}

// List is the working list of entries for a single bulk submission.
// IDs come from a per-list counter and are never reused, even after Clear.
type List struct {
	entries []Entry
	nextID  int
}

// NewList creates an empty entry list.
func NewList() *List {
	return &List{}
}

// Add appends one entry built from raw input.
// PRE: none
// POST: Returns true and appends an entry if the trimmed input is non-empty; otherwise the list is unchanged
func (l *List) Add(raw string) bool {
	v := strings.TrimSpace(raw)
	if v == "" {
		return false
	}
	l.append(v)
	return true
}

// Paste splits raw on commas and whitespace and appends every non-empty token.
// Duplicates are kept.
// PRE: none
// POST: Returns the number of entries appended; existing entries are untouched
func (l *List) Paste(raw string) int {
	added := 0
	for _, tok := range pasteSeparators.Split(raw, -1) {
		if l.Add(tok) {
			added++
		}
	}
	return added
}

// Replace discards the current entries and installs values as a fresh batch.
// PRE: none
// POST: List holds exactly the non-empty trimmed values, in order
func (l *List) Replace(values []string) {
	l.entries = l.entries[:0]
	for _, v := range values {
		l.Add(v)
	}
}

// Remove deletes the entry with the given id.
// PRE: none
// POST: Returns true if an entry was removed; other entries keep their order
func (l *List) Remove(id int) bool {
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the list.
func (l *List) Clear() {
	l.entries = nil
}

// All returns a copy of every entry in insertion order.
func (l *List) All() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Valid returns the entries whose trimmed value is non-empty.
// INVARIANT: List is not mutated
func (l *List) Valid() []Entry {
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if strings.TrimSpace(e.Value) != "" {
			out = append(out, e)
		}
	}
	return out
}

// Values returns the values of the valid entries in order.
func (l *List) Values() []string {
	valid := l.Valid()
	out := make([]string, len(valid))
	for i, e := range valid {
		out[i] = e.Value
	}
	return out
}

// Len returns the number of entries, valid or not.
func (l *List) Len() int {
	return len(l.entries)
}

func (l *List) append(v string) {
	l.nextID++
	l.entries = append(l.entries, Entry{ID: l.nextID, Value: v})
}
