package csvimport

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// TestParseIdentifiers_DedupPreservesOrder verifies duplicates are dropped in first-occurrence order.
func TestParseIdentifiers_DedupPreservesOrder(t *testing.T) {
	got, err := ParseIdentifiers(strings.NewReader("Student ID\n21100001\n21100002\n21100001"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"21100001", "21100002"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

// TestParseIdentifiers_HeaderAliases verifies every alias is accepted case-insensitively.
func TestParseIdentifiers_HeaderAliases(t *testing.T) {
	for _, header := range []string{"STUDENT ID", "StudentId", "id", "Student_ID", " student id "} {
		t.Run(header, func(t *testing.T) {
			got, err := ParseIdentifiers(strings.NewReader("name,"+header+"\nAna,100\nBen,200\n"), nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, []string{"100", "200"}) {
				t.Errorf("ids = %v", got)
			}
		})
	}
}

// TestParseIdentifiers_TrimsAndDropsEmpty verifies blank and short rows are skipped.
func TestParseIdentifiers_TrimsAndDropsEmpty(t *testing.T) {
	text := "Name,Student ID\nAna,  300  \nBen,\nCara\n\nDan,301\n"
	got, err := ParseIdentifiers(strings.NewReader(text), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"300", "301"}) {
		t.Errorf("ids = %v", got)
	}
}

// TestParseIdentifiers_HeaderOnly verifies a header without data rows is rejected.
func TestParseIdentifiers_HeaderOnly(t *testing.T) {
	for _, text := range []string{"Student ID\n", "Student ID", ""} {
		_, err := ParseIdentifiers(strings.NewReader(text), nil)
		if !errors.Is(err, ErrEmptyOrMissingRows) {
			t.Errorf("%q: err = %v, want ErrEmptyOrMissingRows", text, err)
		}
	}
}

// TestParseIdentifiers_MissingColumn verifies an unrecognised header is rejected.
func TestParseIdentifiers_MissingColumn(t *testing.T) {
	_, err := ParseIdentifiers(strings.NewReader("Name,Email\nAna,a@x.org\n"), nil)
	if !errors.Is(err, ErrMissingIDColumn) {
		t.Fatalf("err = %v, want ErrMissingIDColumn", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Kind != KindMissingIDColumn {
		t.Errorf("expected *ParseError with KindMissingIDColumn, got %#v", err)
	}
	if !strings.Contains(err.Error(), "student_id") {
		t.Errorf("message should list aliases: %q", err.Error())
	}
}

// TestParseIdentifiers_NoValidEntries verifies a column of blanks is rejected.
func TestParseIdentifiers_NoValidEntries(t *testing.T) {
	_, err := ParseIdentifiers(strings.NewReader("Name,Student ID\nAna,\nBen, \n"), nil)
	if !errors.Is(err, ErrNoValidEntries) {
		t.Fatalf("err = %v, want ErrNoValidEntries", err)
	}
}

// TestParseIdentifiers_QuotedComma verifies quoted values keep column alignment.
func TestParseIdentifiers_QuotedComma(t *testing.T) {
	text := "Name,Student ID\n\"Cruz, Ana\",400\n\"Reyes, Ben\",401\n"
	got, err := ParseIdentifiers(strings.NewReader(text), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"400", "401"}) {
		t.Errorf("ids = %v", got)
	}
}

// TestParseIdentifiers_BOMAndCustomAliases verifies BOM stripping and caller-supplied aliases.
func TestParseIdentifiers_BOMAndCustomAliases(t *testing.T) {
	got, err := ParseIdentifiers(strings.NewReader("\ufeffID Number\n9\n"), []string{"id number"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"9"}) {
		t.Errorf("ids = %v", got)
	}
}

// TestTemplate_ParsesToSampleIDs verifies the downloadable template imports cleanly.
func TestTemplate_ParsesToSampleIDs(t *testing.T) {
	got, err := ParseIdentifiers(strings.NewReader(Template), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 || got[0] != "21100001" || got[3] != "21100004" {
		t.Errorf("ids = %v", got)
	}
}
