package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"orgconsole/internal/domain/audit"
	"orgconsole/internal/domain/merch"
)

// Format constants for export file format.
const (
	FormatCSV   = "csv"
	ContentType = "text/csv; charset=utf-8"
	dateLayout  = "2006-01-02"

	// HistoryBaseName names audit history downloads.
	HistoryBaseName = "bulk_history"
)

// Domain errors.
var (
	ErrEmptyHeader   = errors.New("export header cannot be empty")
	ErrRowWidth      = errors.New("export row width does not match header")
	ErrEmptyBaseName = errors.New("export file name cannot be empty")
)

// Table is a header plus rows of already-formatted cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Validate checks that the table is rectangular.
// PRE: none
// POST: Returns nil if every row has len(Header) cells
func (t Table) Validate() error {
	if len(t.Header) == 0 {
		return ErrEmptyHeader
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Header) {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrRowWidth, i+1, len(row), len(t.Header))
		}
	}
	return nil
}

// Quote wraps a cell in double quotes, doubling any inner quotes.
func Quote(cell string) string {
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}

// WriteCSV writes the table as CSV. The header row is written bare, as the console
// always has; every data cell is quoted. Rows are separated by "\n" with no trailing newline.
// PRE: t.Validate() == nil
// POST: Output re-parses with standard double-quote rules to the original cells
func WriteCSV(w io.Writer, t Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(joinHeader(t.Header)); err != nil {
		return err
	}
	for _, row := range t.Rows {
		quoted := make([]string, len(row))
		for i, c := range row {
			quoted[i] = Quote(c)
		}
		if _, err := bw.WriteString("\n" + strings.Join(quoted, ",")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// joinHeader quotes only header cells that would otherwise break the row.
func joinHeader(header []string) string {
	cells := make([]string, len(header))
	for i, h := range header {
		if strings.ContainsAny(h, "\",\n\r") {
			cells[i] = Quote(h)
		} else {
			cells[i] = h
		}
	}
	return strings.Join(cells, ",")
}

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lower-cases s and replaces runs of other characters with underscores.
func Slug(s string) string {
	return strings.Trim(unsafeNameChars.ReplaceAllString(strings.ToLower(s), "_"), "_")
}

// FileName returns "<base>_<YYYY-MM-DD>.csv".
// PRE: base is non-empty
// POST: Returns a download file name with an ISO date suffix
func FileName(base string, day time.Time) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", ErrEmptyBaseName
	}
	return fmt.Sprintf("%s_%s.%s", base, day.Format(dateLayout), FormatCSV), nil
}

// MerchCustomerHeader is the header row for merch customer exports.
var MerchCustomerHeader = []string{
	"Student ID",
	"Full Name",
	"Year Level",
	"Variant",
	"Qty",
	"Total Paid",
	"Payment Status",
	"Purchase Timestamp",
}

// MerchCustomerCells formats a customer in MerchCustomerHeader order.
func MerchCustomerCells(c merch.Customer) []string {
	return []string{
		c.StudentID,
		c.StudentName,
		c.YearLevel,
		c.Variant(),
		strconv.Itoa(c.Quantity),
		strconv.FormatFloat(c.TotalPrice, 'f', 2, 64),
		c.OrderStatus,
		c.OrderDate,
	}
}

// MerchCustomerTable builds the export table for merch customers.
func MerchCustomerTable(customers []merch.Customer) Table {
	t := Table{Header: MerchCustomerHeader, Rows: make([][]string, 0, len(customers))}
	for _, c := range customers {
		t.Rows = append(t.Rows, MerchCustomerCells(c))
	}
	return t
}

// MerchCustomersBaseName returns "merch_<name>_customers".
func MerchCustomersBaseName(merchName string) string {
	slug := Slug(merchName)
	if slug == "" {
		slug = "unknown"
	}
	return "merch_" + slug + "_customers"
}

// HistoryHeader is the header row for audit history exports.
var HistoryHeader = []string{
	"Timestamp",
	"Action",
	"Result",
	"Actor",
	"Target",
	"Attempted",
	"Succeeded",
	"Not Created",
	"Description",
}

// HistoryTable builds the export table for audit events. Missing ids are space separated.
func HistoryTable(events []audit.Event) Table {
	t := Table{Header: HistoryHeader, Rows: make([][]string, 0, len(events))}
	for _, e := range events {
		t.Rows = append(t.Rows, []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			string(e.Action),
			string(e.Result),
			e.Actor,
			e.ResourceID,
			strconv.Itoa(e.Attempted),
			strconv.Itoa(e.Succeeded),
			strings.Join(e.Missing, " "),
			e.Description,
		})
	}
	return t
}
