package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"orgconsole/internal/domain/audit"
	"orgconsole/internal/domain/merch"
)

// TestWriteCSV_RoundTrip verifies quotes and commas survive a standard CSV re-parse.
func TestWriteCSV_RoundTrip(t *testing.T) {
	table := Table{
		Header: []string{"Name", "Note"},
		Rows: [][]string{
			{`Ana "Ace" Cruz`, "paid, claimed"},
			{"Ben", `""`},
		},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	want := append([][]string{table.Header}, table.Rows...)
	if !reflect.DeepEqual(records, want) {
		t.Errorf("records = %q, want %q", records, want)
	}
}

// TestWriteCSV_QuotesEveryDataCell verifies the exact wire format.
func TestWriteCSV_QuotesEveryDataCell(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, Table{Header: []string{"A", "B"}, Rows: [][]string{{"1", `x"y`}}})
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "A,B\n\"1\",\"x\"\"y\""
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

// TestWriteCSV_RejectsRaggedRows verifies row width validation.
func TestWriteCSV_RejectsRaggedRows(t *testing.T) {
	err := WriteCSV(&bytes.Buffer{}, Table{Header: []string{"A"}, Rows: [][]string{{"1", "2"}}})
	if !errors.Is(err, ErrRowWidth) {
		t.Errorf("err = %v, want ErrRowWidth", err)
	}
}

// TestFileName verifies the ISO date suffix.
func TestFileName(t *testing.T) {
	got, err := FileName(MerchCustomersBaseName("CCS Hoodie!"), time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FileName: %v", err)
	}
	if got != "merch_ccs_hoodie_customers_2026-10-19.csv" {
		t.Errorf("name = %q", got)
	}
	if _, err := FileName(" ", time.Now()); err != ErrEmptyBaseName {
		t.Errorf("err = %v, want ErrEmptyBaseName", err)
	}
}

// TestMerchCustomerCells verifies variant joining and price formatting.
func TestMerchCustomerCells(t *testing.T) {
	c := merch.Customer{
		StudentID: "21100001", StudentName: "Ana", YearLevel: "2",
		Design: "Classic", Size: "M", Quantity: 2, TotalPrice: 700,
		OrderStatus: "CLAIMED", OrderDate: "2026-01-02T10:00:00",
	}
	want := []string{"21100001", "Ana", "2", "Classic / M", "2", "700.00", "CLAIMED", "2026-01-02T10:00:00"}
	if got := MerchCustomerCells(c); !reflect.DeepEqual(got, want) {
		t.Errorf("cells = %v, want %v", got, want)
	}
	table := MerchCustomerTable([]merch.Customer{c, {}})
	if err := table.Validate(); err != nil || len(table.Rows) != 2 {
		t.Errorf("table invalid: %v", err)
	}
}

// TestHistoryTable verifies audit events flatten into history rows.
func TestHistoryTable(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	e := audit.NewEvent(audit.CategoryBulk, audit.ActionBulkCreate, "pres", at).
		WithResult(audit.ResultPartial).
		WithResource("academic_year", "2026-2027").
		WithCounts(3, 1, []string{"2", "3"})
	table := HistoryTable([]audit.Event{e})
	if err := table.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := []string{"2026-10-19T08:30:00Z", "bulk_create", "partial", "pres", "2026-2027", "3", "1", "2 3", ""}
	if !reflect.DeepEqual(table.Rows[0], want) {
		t.Errorf("row = %v, want %v", table.Rows[0], want)
	}
}
