package web

import (
	"bytes"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"orgconsole/internal/adapters/http/middleware"
	"orgconsole/internal/adapters/http/perf"
	"orgconsole/internal/application/orchestrators"
	"orgconsole/internal/domain/bulk"
)

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func isHTMLRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json_encode_failed", "error", err.Error())
	}
}

// writeDownload sends body as a file attachment.
func writeDownload(w http.ResponseWriter, name, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(body)
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	funcMap := template.FuncMap{
		"csrfToken": func() string { return csrf.Token(r) },
		"operator":  func() string { return deps.Operator.Actor() },
		"renderMarkdown": func(md string) template.HTML {
			var buf bytes.Buffer
			if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(md))
			}
			return template.HTML(buf.String())
		},
		"add":  func(a, b int) int { return a + b },
		"sub":  func(a, b int) int { return a - b },
		"date": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		internalError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// workspaceFor returns the caller's workspace. Handlers reached without the
// workspace middleware (tests, JSON clients without cookies) get a fresh one.
func workspaceFor(r *http.Request) *middleware.Workspace {
	if ws, ok := middleware.WorkspaceFromContext(r.Context()); ok {
		return ws
	}
	return workspaces.Create()
}

// parseKind reads the {kind} path value, writing a 404 when it is unknown.
func parseKind(w http.ResponseWriter, r *http.Request) (bulk.Kind, bool) {
	kind, err := bulk.ParseKind(r.PathValue("kind"))
	if err != nil {
		http.NotFound(w, r)
		return "", false
	}
	return kind, true
}

// handleRoot sends the console root to the membership bulk page.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/bulk/membership", http.StatusSeeOther)
}

// healthzResponse is the body of GET /healthz.
type healthzResponse struct {
	Status string         `json:"status"`
	Time   time.Time      `json:"time"`
	Perf   *perf.Snapshot `json:"perf,omitempty"`
}

// handleHealthz reports liveness plus the last 15 minutes of request, query and backend timings.
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	now := timeNow()
	resp := healthzResponse{Status: "ok", Time: now.UTC()}
	if perfCollector != nil {
		snap := perfCollector.Snapshot(now.Add(-15*time.Minute), 5)
		resp.Perf = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}

// submitDeps builds the orchestrator dependencies for a workspace.
func submitDeps(ws *middleware.Workspace) orchestrators.SubmitBulkDeps {
	return orchestrators.SubmitBulkDeps{
		Memberships: deps.Backend,
		Payments:    deps.Backend,
		AuditStore:  deps.AuditStore,
		Reports:     deps.Reports,
		Refresh:     refreshFor(ws),
		Now:         timeNow,
	}
}
