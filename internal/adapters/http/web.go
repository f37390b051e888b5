package web

import (
	"crypto/rand"
	"embed"
	"log/slog"
	"net/http"
	"time"

	"orgconsole/internal/adapters/backend"
	"orgconsole/internal/adapters/http/middleware"
	"orgconsole/internal/adapters/http/perf"
	auditStore "orgconsole/internal/adapters/storage/audit"
	"orgconsole/internal/application/orchestrators"
	"orgconsole/internal/application/projections"
	"orgconsole/internal/domain/academicyear"
	"orgconsole/internal/domain/bulk"
)

//go:embed templates/*.html
var templateFS embed.FS

// Backend is the part of the org backend the console talks to.
type Backend interface {
	orchestrators.MembershipSubmitter
	orchestrators.PaymentSubmitter
	orchestrators.CustomerExporter
	projections.MembershipLister
	projections.CustomerLister
}

var _ Backend = (*backend.Client)(nil)

// Deps holds the console's collaborators.
type Deps struct {
	Backend    Backend
	AuditStore auditStore.Store
	Reports    orchestrators.SendReportDeps
	// Operator is read from the backend token; it gates finance-only actions.
	Operator    backend.TokenInfo
	CurrentYear func() academicyear.Range
	IDAliases   []string
}

// Options configure the middleware chain.
type Options struct {
	CSRFKey        []byte // 32 bytes; a random key is generated when empty
	SecureCookies  bool
	TrustedOrigins []string
	RateLimit      int // requests per minute per client
	SlowRequest    time.Duration
}

// Global dependencies (set by NewMux)
var deps Deps

// Global workspace store instance
var workspaces *middleware.WorkspaceStore

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// timeNow is a variable for testability.
var timeNow = time.Now

// NewMux wires HTTP handlers for the console.
func NewMux(d Deps, opts Options, collector *perf.Collector) http.Handler {
	deps = d
	if deps.CurrentYear == nil {
		deps.CurrentYear = func() academicyear.Range {
			return academicyear.Current(timeNow(), academicyear.DefaultCutover)
		}
	}
	perfCollector = collector
	workspaces = middleware.NewWorkspaceStore(newSession)

	mux := http.NewServeMux()
	registerRoutes(mux)

	csrfKey := opts.CSRFKey
	if len(csrfKey) == 0 {
		csrfKey = randomKey()
	}

	rate := opts.RateLimit
	if rate <= 0 {
		rate = 120
	}
	limiter := middleware.NewRateLimiter(rate, time.Minute)

	// Apply middleware: Timing -> RateLimit -> Workspace -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, opts.SecureCookies, opts.TrustedOrigins),
		middleware.WorkspaceMiddleware(workspaces, opts.SecureCookies, "/bulk/"),
		middleware.RateLimit(limiter),
		middleware.Timing(collector, opts.SlowRequest),
	)
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("GET /healthz", handleHealthz)

	mux.HandleFunc("GET /bulk/{kind}", handleBulkPage)
	mux.HandleFunc("GET /bulk/{kind}/template.csv", handleBulkTemplate)
	mux.HandleFunc("POST /bulk/{kind}/{action}", handleBulkAction)

	mux.HandleFunc("GET /memberships", handleMemberships)
	mux.HandleFunc("GET /merch/{merchID}/customers", handleMerchCustomers)
	mux.HandleFunc("GET /merch/{merchID}/customers/export.csv", handleExportMerchCustomers)
	mux.HandleFunc("GET /history", handleHistory)
	mux.HandleFunc("GET /history/export.csv", handleExportHistory)
}

// newSession builds a closed bulk session on the current academic year.
func newSession(kind bulk.Kind) *bulk.Session {
	return bulk.NewSession(kind, deps.CurrentYear(), deps.IDAliases)
}

// randomKey generates a per-process CSRF key; forms do not survive a restart.
func randomKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic("generate csrf key: " + err.Error())
	}
	slog.Warn("csrf_key_random", "hint", "set CSRF_KEY so forms survive restarts")
	return key
}
