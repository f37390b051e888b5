package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultIDAliases are the accepted header names for the student ID column.
var DefaultIDAliases = []string{"student id", "studentid", "id", "student_id"}

// Kind classifies a parse failure.
type Kind string

const (
	KindEmptyOrMissingRows Kind = "empty_or_missing_rows"
	KindMissingIDColumn    Kind = "missing_id_column"
	KindNoValidEntries     Kind = "no_valid_entries"
	KindMalformed          Kind = "malformed"
)

// Sentinel errors, matched with errors.Is against a *ParseError.
var (
	ErrEmptyOrMissingRows = errors.New("CSV must have a header row and at least one data row")
	ErrMissingIDColumn    = errors.New(`CSV must contain a "Student ID" column`)
	ErrNoValidEntries     = errors.New("no valid student entries found in CSV")
	ErrMalformed          = errors.New("CSV is malformed")
)

// ParseError describes why CSV text could not be turned into identifiers.
type ParseError struct {
	Kind    Kind
	Line    int
	Aliases []string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	switch e.Kind {
	case KindMissingIDColumn:
		return fmt.Sprintf("%s (or variants: %s)", ErrMissingIDColumn, strings.Join(e.Aliases, ", "))
	case KindMalformed:
		if e.Err != nil {
			return fmt.Sprintf("%s at line %d: %v", ErrMalformed, e.Line, e.Err)
		}
		return fmt.Sprintf("%s at line %d", ErrMalformed, e.Line)
	case KindEmptyOrMissingRows:
		return ErrEmptyOrMissingRows.Error()
	default:
		return ErrNoValidEntries.Error()
	}
}

// Is lets errors.Is match the sentinel for the error's kind.
func (e *ParseError) Is(target error) bool {
	switch e.Kind {
	case KindEmptyOrMissingRows:
		return target == ErrEmptyOrMissingRows
	case KindMissingIDColumn:
		return target == ErrMissingIDColumn
	case KindNoValidEntries:
		return target == ErrNoValidEntries
	case KindMalformed:
		return target == ErrMalformed
	}
	return false
}

// Unwrap returns the underlying reader error, if any.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseIdentifiers reads CSV text and returns the distinct identifiers found in the
// column whose header matches one of aliases. A nil aliases uses DefaultIDAliases.
// PRE: r yields UTF-8 text whose first record is a header
// POST: Returns identifiers in first-occurrence order with duplicates and blanks removed,
//
//	or a *ParseError
//
// INVARIANT: Quoted fields may contain commas; they never shift column alignment.
func ParseIdentifiers(r io.Reader, aliases []string) ([]string, error) {
	if len(aliases) == 0 {
		aliases = DefaultIDAliases
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		line := 0
		if errors.As(err, &pe) {
			line = pe.Line
		}
		return nil, &ParseError{Kind: KindMalformed, Line: line, Err: err}
	}
	if len(records) < 2 {
		return nil, &ParseError{Kind: KindEmptyOrMissingRows}
	}

	idx := headerIndex(records[0], aliases)
	if idx < 0 {
		return nil, &ParseError{Kind: KindMissingIDColumn, Aliases: aliases}
	}

	seen := make(map[string]struct{}, len(records)-1)
	ids := make([]string, 0, len(records)-1)
	for _, row := range records[1:] {
		if idx >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[idx])
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		ids = append(ids, v)
	}

	if len(ids) == 0 {
		return nil, &ParseError{Kind: KindNoValidEntries}
	}
	return ids, nil
}

// headerIndex returns the first column whose header matches an alias, or -1.
func headerIndex(header []string, aliases []string) int {
	want := make(map[string]bool, len(aliases))
	for _, a := range aliases {
		want[strings.ToLower(strings.TrimSpace(a))] = true
	}
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		if want[strings.ToLower(strings.TrimSpace(h))] {
			return i
		}
	}
	return -1
}
