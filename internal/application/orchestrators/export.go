package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	auditStore "orgconsole/internal/adapters/storage/audit"
	"orgconsole/internal/domain/audit"
	"orgconsole/internal/domain/export"
	"orgconsole/internal/domain/period"
)

// ErrInvalidMerchID is returned when an export names no merch.
var ErrInvalidMerchID = errors.New("merch id must be positive")

// historyExportLimit bounds how many audit events one history export holds.
const historyExportLimit = 10000

// ExportFile is a finished CSV download.
type ExportFile struct {
	FileName string
	Body     []byte
	Rows     int
}

// --- Merch customers ---

// ExportMerchCustomersInput names the merch to export.
type ExportMerchCustomersInput struct {
	MerchID   int64
	MerchName string
	Actor     string
}

// ExportMerchCustomersDeps holds dependencies for ExportMerchCustomers.
type ExportMerchCustomersDeps struct {
	Customers  CustomerExporter
	AuditStore AuditRecorder
	Now        func() time.Time
}

// ExecuteExportMerchCustomers fetches every customer of a merch and renders the CSV.
// PRE: MerchID > 0
// POST: Returns merch_<name>_customers_<date>.csv with one quoted row per customer;
//
//	an export event is recorded.
func ExecuteExportMerchCustomers(ctx context.Context, input ExportMerchCustomersInput, deps ExportMerchCustomersDeps) (ExportFile, error) {
	if input.MerchID <= 0 {
		return ExportFile{}, ErrInvalidMerchID
	}
	now := nowFunc(deps.Now)()

	customers, err := deps.Customers.ExportMerchCustomers(ctx, input.MerchID)
	if err != nil {
		return ExportFile{}, fmt.Errorf("fetch merch customers: %w", err)
	}

	name, err := export.FileName(export.MerchCustomersBaseName(input.MerchName), now)
	if err != nil {
		return ExportFile{}, err
	}
	file, err := renderTable(name, export.MerchCustomerTable(customers))
	if err != nil {
		return ExportFile{}, err
	}

	recordAudit(ctx, deps.AuditStore, audit.NewEvent(audit.CategoryExport, audit.ActionExport, input.Actor, now).
		WithResource("merch", strconv.FormatInt(input.MerchID, 10)).
		WithCounts(file.Rows, file.Rows, nil).
		WithDescription(name))
	slog.Info("export_merch_customers", "merch_id", input.MerchID, "rows", file.Rows, "file", name)
	return file, nil
}

// --- Audit history ---

// ExportHistoryInput selects the audit events to export.
type ExportHistoryInput struct {
	Period period.Period
	Action audit.Action
	Actor  string
}

// ExportHistoryDeps holds dependencies for ExportHistory.
type ExportHistoryDeps struct {
	AuditStore interface {
		AuditRecorder
		AuditLister
	}
	Now func() time.Time
}

// ExecuteExportHistory renders the audit events in a period as CSV, newest first.
// PRE: Period is a known period (empty means all time)
// POST: Returns bulk_history_<date>.csv; the export itself is recorded after the read,
//
//	so it never appears in its own file.
func ExecuteExportHistory(ctx context.Context, input ExportHistoryInput, deps ExportHistoryDeps) (ExportFile, error) {
	now := nowFunc(deps.Now)()
	p := input.Period
	if p == "" {
		p = period.AllTime
	}

	events, err := deps.AuditStore.List(ctx, auditStore.PeriodFilter(p, input.Action, now), historyExportLimit)
	if err != nil {
		return ExportFile{}, fmt.Errorf("list audit events: %w", err)
	}

	name, err := export.FileName(export.HistoryBaseName, now)
	if err != nil {
		return ExportFile{}, err
	}
	file, err := renderTable(name, export.HistoryTable(events))
	if err != nil {
		return ExportFile{}, err
	}

	recordAudit(ctx, deps.AuditStore, audit.NewEvent(audit.CategoryExport, audit.ActionExport, input.Actor, now).
		WithResource("audit_history", string(p)).
		WithCounts(file.Rows, file.Rows, nil).
		WithDescription(name))
	slog.Info("export_history", "period", p, "action", input.Action, "rows", file.Rows)
	return file, nil
}

func renderTable(name string, t export.Table) (ExportFile, error) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, t); err != nil {
		return ExportFile{}, err
	}
	return ExportFile{FileName: name, Body: buf.Bytes(), Rows: len(t.Rows)}, nil
}
