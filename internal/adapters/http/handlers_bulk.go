package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"orgconsole/internal/adapters/backend"
	"orgconsole/internal/adapters/http/middleware"
	"orgconsole/internal/application/listutil"
	"orgconsole/internal/application/orchestrators"
	"orgconsole/internal/application/projections"
	"orgconsole/internal/domain/academicyear"
	"orgconsole/internal/domain/bulk"
	"orgconsole/internal/domain/csvimport"
	"orgconsole/internal/domain/export"
)

// maxFormBytes caps any bulk form post, uploads included.
const maxFormBytes = orchestrators.MaxImportBytes + 64<<10

// recentPerKind is how many refreshed rows the bulk page shows.
const recentPerKind = 7

// errBadForm marks a form value that could not be parsed.
var errBadForm = errors.New("invalid form value")

// bulkPage is the data behind /bulk/{kind}.
type bulkPage struct {
	Kind        bulk.Kind
	View        bulk.View
	YearOptions []academicyear.Range
	Recent      []middleware.RecentRow
	MerchID     int64
	CanPay      bool
	TemplateURL string
}

func newBulkPage(kind bulk.Kind, ws *middleware.Workspace) bulkPage {
	v := ws.Session(kind).View()
	return bulkPage{
		Kind:        kind,
		View:        v,
		YearOptions: academicyear.Options(v.Current),
		Recent:      ws.Recent(kind),
		MerchID:     ws.MerchID(),
		CanPay:      deps.Operator.Position.IsFinance(),
		TemplateURL: "/bulk/" + string(kind) + "/template.csv",
	}
}

// handleBulkPage renders the bulk modal for a kind: the list, its parameters, and the gate.
func handleBulkPage(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}
	page := newBulkPage(kind, workspaceFor(r))
	if isHTMLRequest(r) {
		renderTemplate(w, r, "bulk.html", page)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleBulkTemplate serves the blank import template.
func handleBulkTemplate(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}
	writeDownload(w, kind.TemplateFileName(), export.ContentType, []byte(csvimport.Template))
}

// handleBulkAction applies one control of the bulk modal to the workspace's session.
func handleBulkAction(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}
	ws := workspaceFor(r)
	s := ws.Session(kind)
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	var err error
	switch r.PathValue("action") {
	case "open":
		s.Open()
	case "close":
		err = s.Close()
	case "add":
		_, err = s.Add(r.FormValue("id"))
	case "paste":
		_, err = s.Paste(r.FormValue("ids"))
	case "import":
		err = importRoster(r, s)
	case "remove":
		var id int
		if id, err = formInt(r, "entry"); err == nil {
			err = s.Remove(id)
		}
	case "clear":
		err = s.Clear()
	case "year":
		err = setYear(r, s)
	case "params":
		err = setPayment(r, s, ws)
	case "confirm":
		err = s.RequestConfirm()
	case "cancel":
		err = s.Cancel()
	case "submit":
		_, err = orchestrators.ExecuteSubmitBulk(r.Context(), orchestrators.SubmitBulkInput{
			Session:  s,
			Operator: deps.Operator,
		}, submitDeps(ws))
	default:
		http.NotFound(w, r)
		return
	}

	status, inSession := actionStatus(err)
	if !inSession {
		if status == http.StatusInternalServerError {
			internalError(w, err)
			return
		}
		http.Error(w, err.Error(), status)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, status, newBulkPage(kind, ws))
		return
	}
	http.Redirect(w, r, "/bulk/"+string(kind), http.StatusSeeOther)
}

// actionStatus maps an action error to a response status. inSession is true when
// the session itself now carries the message, so the page is shown again.
func actionStatus(err error) (status int, inSession bool) {
	var subErr *orchestrators.SubmissionError
	var parseErr *csvimport.ParseError
	switch {
	case err == nil:
		return http.StatusOK, true
	case errors.Is(err, bulk.ErrLocked), errors.Is(err, bulk.ErrSubmissionInFlight), errors.Is(err, bulk.ErrInvalidTransition):
		return http.StatusConflict, false
	case errors.Is(err, bulk.ErrNotConfirmable), errors.Is(err, errBadForm):
		return http.StatusUnprocessableEntity, false
	case errors.As(err, &subErr):
		return http.StatusBadGateway, true
	case errors.Is(err, bulk.ErrFinanceOnly):
		return http.StatusForbidden, true
	case errors.Is(err, backend.ErrTokenExpired):
		return http.StatusUnauthorized, true
	case errors.As(err, &parseErr), errors.Is(err, orchestrators.ErrImportNotCSV), errors.Is(err, orchestrators.ErrImportTooLarge):
		return http.StatusUnprocessableEntity, true
	}
	return http.StatusInternalServerError, false
}

// importRoster hands the uploaded file to the import orchestrator.
func importRoster(r *http.Request, s *bulk.Session) error {
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.SetError(orchestrators.ErrImportTooLarge.Error())
			return orchestrators.ErrImportTooLarge
		}
		return errBadForm
	}
	defer file.Close()
	_, err = orchestrators.ExecuteImportRoster(orchestrators.ImportRosterInput{
		Session:  s,
		FileName: header.Filename,
		File:     file,
	})
	return err
}

// setYear selects the academic year. "start" alone picks start..start+1.
func setYear(r *http.Request, s *bulk.Session) error {
	start, err := formInt(r, "start")
	if err != nil {
		return err
	}
	if strings.TrimSpace(r.FormValue("end")) == "" {
		return s.SelectYearStart(start)
	}
	end, err := formInt(r, "end")
	if err != nil {
		return err
	}
	return s.SetYear(academicyear.Range{Start: start, End: end})
}

// setPayment stores the payment parameters and the merch they belong to.
func setPayment(r *http.Request, s *bulk.Session, ws *middleware.Workspace) error {
	item, err := formInt64(r, "variant_item")
	if err != nil {
		return err
	}
	qty := 1
	if strings.TrimSpace(r.FormValue("qty")) != "" {
		if qty, err = formInt(r, "qty"); err != nil {
			return err
		}
	}
	if strings.TrimSpace(r.FormValue("merch_id")) != "" {
		merchID, err := formInt64(r, "merch_id")
		if err != nil {
			return err
		}
		ws.SetMerchID(merchID)
	}
	return s.SetPayment(bulk.PaymentParams{
		MerchVariantItemID: item,
		SKU:                strings.TrimSpace(r.FormValue("sku")),
		Quantity:           qty,
	})
}

func formInt(r *http.Request, key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	if err != nil {
		return 0, errBadForm
	}
	return n, nil
}

func formInt64(r *http.Request, key string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(r.FormValue(key)), 10, 64)
	if err != nil {
		return 0, errBadForm
	}
	return n, nil
}

// refreshFor re-fetches the list a successful submission changed and keeps it on the workspace.
func refreshFor(ws *middleware.Workspace) func(ctx context.Context, kind bulk.Kind) error {
	return func(ctx context.Context, kind bulk.Kind) error {
		if kind == bulk.KindPayment {
			return refreshCustomers(ctx, ws)
		}
		res, err := projections.QueryGetMembershipPage(ctx, projections.GetMembershipPageQuery{
			PageParams: listutil.PageParams{Page: 1, PerPage: recentPerKind},
		}, projections.GetMembershipPageDeps{Memberships: deps.Backend, Current: deps.CurrentYear()})
		if err != nil {
			return err
		}
		rows := make([]middleware.RecentRow, len(res.Rows))
		for i, m := range res.Rows {
			rows[i] = middleware.RecentRow{StudentID: m.StudentID, Name: m.StudentName, Detail: m.Year + " " + m.Status}
		}
		ws.SetRecent(kind, rows)
		return nil
	}
}

func refreshCustomers(ctx context.Context, ws *middleware.Workspace) error {
	merchID := ws.MerchID()
	if merchID <= 0 {
		return nil
	}
	res, err := projections.QueryGetMerchCustomerPage(ctx, projections.GetMerchCustomerPageQuery{
		PageParams: listutil.PageParams{Page: 1, PerPage: recentPerKind},
		MerchID:    merchID,
	}, projections.GetMerchCustomerPageDeps{Customers: deps.Backend})
	if err != nil {
		return err
	}
	rows := make([]middleware.RecentRow, len(res.Customers))
	for i, c := range res.Customers {
		rows[i] = middleware.RecentRow{StudentID: c.StudentID, Name: c.StudentName, Detail: c.Variant() + " " + c.OrderStatus}
	}
	ws.SetRecent(bulk.KindPayment, rows)
	return nil
}
