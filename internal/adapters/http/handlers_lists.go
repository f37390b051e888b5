package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"orgconsole/internal/application/listutil"
	"orgconsole/internal/application/orchestrators"
	"orgconsole/internal/application/projections"
	"orgconsole/internal/domain/audit"
	"orgconsole/internal/domain/bulk"
	"orgconsole/internal/domain/export"
	"orgconsole/internal/domain/merch"
	"orgconsole/internal/domain/period"
)

// exportFailed is shown when the backend gives no reason for a failed export.
const exportFailed = "Failed to export customers"

// handleMemberships lists one page of memberships filtered by the search box.
func handleMemberships(w http.ResponseWriter, r *http.Request) {
	lp := listutil.ParseListParams(r.URL.Query(), nil)
	result, err := projections.QueryGetMembershipPage(r.Context(), projections.GetMembershipPageQuery{
		PageParams: lp.PageParams,
		Search:     lp.Search,
	}, projections.GetMembershipPageDeps{
		Memberships: deps.Backend,
		Current:     deps.CurrentYear(),
	})
	if err != nil {
		http.Error(w, bulk.FailureMessage(err, "Failed to load memberships"), http.StatusBadGateway)
		return
	}

	if isHTMLRequest(r) {
		renderTemplate(w, r, "memberships.html", map[string]any{
			"Result":         result,
			"PerPageOptions": listutil.PerPageOptions,
			"Current":        deps.CurrentYear(),
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleMerchCustomers lists one page of a merch's customers, optionally narrowed by order status.
func handleMerchCustomers(w http.ResponseWriter, r *http.Request) {
	merchID, err := strconv.ParseInt(r.PathValue("merchID"), 10, 64)
	if err != nil || merchID <= 0 {
		http.Error(w, "invalid merch id", http.StatusBadRequest)
		return
	}
	lp := listutil.ParseListParams(r.URL.Query(), []string{"status"})
	result, err := projections.QueryGetMerchCustomerPage(r.Context(), projections.GetMerchCustomerPageQuery{
		PageParams: lp.PageParams,
		MerchID:    merchID,
		Search:     lp.Search,
		Status:     strings.ToUpper(lp.Filters["status"]),
	}, projections.GetMerchCustomerPageDeps{Customers: deps.Backend})
	if err != nil {
		http.Error(w, bulk.FailureMessage(err, "Failed to load customers"), http.StatusBadGateway)
		return
	}

	if isHTMLRequest(r) {
		renderTemplate(w, r, "merch_customers.html", map[string]any{
			"Result":         result,
			"Name":           r.URL.Query().Get("name"),
			"PerPageOptions": listutil.PerPageOptions,
			"Statuses":       []string{merch.StatusPending, merch.StatusCompleted, merch.StatusClaimed, merch.StatusCancelled},
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleExportMerchCustomers downloads every customer of a merch as CSV.
func handleExportMerchCustomers(w http.ResponseWriter, r *http.Request) {
	merchID, err := strconv.ParseInt(r.PathValue("merchID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid merch id", http.StatusBadRequest)
		return
	}
	file, err := orchestrators.ExecuteExportMerchCustomers(r.Context(), orchestrators.ExportMerchCustomersInput{
		MerchID:   merchID,
		MerchName: r.URL.Query().Get("name"),
		Actor:     deps.Operator.Actor(),
	}, orchestrators.ExportMerchCustomersDeps{
		Customers:  deps.Backend,
		AuditStore: deps.AuditStore,
		Now:        timeNow,
	})
	if errors.Is(err, orchestrators.ErrInvalidMerchID) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, bulk.FailureMessage(err, exportFailed), http.StatusBadGateway)
		return
	}
	writeDownload(w, file.FileName, export.ContentType, file.Body)
}

// historyParams reads the period and action filters shared by the history page and its export.
func historyParams(r *http.Request) (period.Period, audit.Action, error) {
	p, err := period.Parse(r.URL.Query().Get("period"))
	if err != nil {
		return "", "", err
	}
	a, err := audit.ParseAction(r.URL.Query().Get("action"))
	if err != nil {
		return "", "", err
	}
	return p, a, nil
}

// handleHistory lists recent bulk submissions and exports.
func handleHistory(w http.ResponseWriter, r *http.Request) {
	p, a, err := historyParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := projections.QueryGetHistory(r.Context(), projections.GetHistoryQuery{Period: p, Action: a}, projections.GetHistoryDeps{
		AuditStore: deps.AuditStore,
		Now:        timeNow,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	if isHTMLRequest(r) {
		renderTemplate(w, r, "history.html", map[string]any{
			"Result":  result,
			"Periods": period.All,
			"Actions": audit.Actions,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleExportHistory downloads the filtered history as CSV.
func handleExportHistory(w http.ResponseWriter, r *http.Request) {
	p, a, err := historyParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, err := orchestrators.ExecuteExportHistory(r.Context(), orchestrators.ExportHistoryInput{
		Period: p,
		Action: a,
		Actor:  deps.Operator.Actor(),
	}, orchestrators.ExportHistoryDeps{AuditStore: deps.AuditStore, Now: timeNow})
	if err != nil {
		internalError(w, err)
		return
	}
	writeDownload(w, file.FileName, export.ContentType, file.Body)
}
