package browser_test

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"orgconsole/internal/adapters/backend"
	web "orgconsole/internal/adapters/http"
	"orgconsole/internal/adapters/http/perf"
	"orgconsole/internal/adapters/storage"
	auditStore "orgconsole/internal/adapters/storage/audit"
	"orgconsole/internal/domain/academicyear"
	"orgconsole/internal/domain/position"
)

// fakeOrg stands in for the organization backend.
type fakeOrg struct {
	mu       sync.Mutex
	students []string
}

func (f *fakeOrg) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/student-memberships/bulk":
		var req backend.BulkMembershipRequest
		json.NewDecoder(r.Body).Decode(&req)
		out := []map[string]any{}
		for i, id := range req.StudentIDs {
			f.students = append(f.students, id)
			out = append(out, map[string]any{"membershipId": i + 1, "studentId": id, "active": true, "yearStart": req.YearStart, "yearEnd": req.YearEnd})
		}
		json.NewEncoder(w).Encode(out)
	case r.Method == http.MethodGet && r.URL.Path == "/api/student-memberships":
		content := []map[string]any{}
		for i, id := range f.students {
			content = append(content, map[string]any{"membershipId": i + 1, "studentId": id, "studentName": "Student " + id, "active": true, "yearStart": 2026, "yearEnd": 2027})
		}
		json.NewEncoder(w).Encode(map[string]any{"content": content, "totalElements": len(content), "totalPages": 1, "number": 0, "size": 10})
	default:
		http.NotFound(w, r)
	}
}

// testApp holds the running console, its fake backend and Playwright handles.
type testApp struct {
	BaseURL string
	Org     *fakeOrg
	Server  *http.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
}

// newTestApp wires the console against a fake backend and a temp SQLite audit DB.
// The test is skipped when Playwright or its browser is not installed.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	pw, err := playwright.Run()
	if err != nil {
		t.Skipf("playwright not available: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		t.Skipf("chromium not available: %v", err)
	}

	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}

	org := &fakeOrg{}
	orgSrv := httptest.NewServer(org)

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	collector := perf.NewCollector(256)
	mux := web.NewMux(web.Deps{
		Backend:     backend.NewClient(orgSrv.URL, "", orgSrv.Client(), collector),
		AuditStore:  auditStore.NewSQLiteStore(db),
		Operator:    backend.TokenInfo{Subject: "tester", Position: position.Treasurer},
		CurrentYear: func() academicyear.Range { return academicyear.FromStart(2026) },
	}, web.Options{
		CSRFKey: []byte("0123456789abcdef0123456789abcdef"),
		TrustedOrigins: []string{
			fmt.Sprintf("127.0.0.1:%d", port),
			fmt.Sprintf("localhost:%d", port),
		},
		RateLimit: 10000,
	}, collector)

	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	// Wait for server to be ready
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		orgSrv.Close()
		db.Close()
	})

	return &testApp{
		BaseURL: baseURL,
		Org:     org,
		Server:  srv,
		PW:      pw,
		Browser: browser,
	}
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// click clicks the first element matching selector.
func click(t *testing.T, page playwright.Page, selector string) {
	t.Helper()
	if err := page.Locator(selector).First().Click(); err != nil {
		t.Fatalf("click %s: %v", selector, err)
	}
}

// waitVisible waits until selector is visible.
func waitVisible(t *testing.T, page playwright.Page, selector string) playwright.Locator {
	t.Helper()
	loc := page.Locator(selector).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("%s not visible: %v", selector, err)
	}
	return loc
}
