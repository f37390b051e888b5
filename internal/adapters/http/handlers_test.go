package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"orgconsole/internal/adapters/backend"
	"orgconsole/internal/adapters/http/middleware"
	"orgconsole/internal/adapters/storage"
	auditStore "orgconsole/internal/adapters/storage/audit"
	"orgconsole/internal/domain/academicyear"
	"orgconsole/internal/domain/entry"
	"orgconsole/internal/domain/membership"
	"orgconsole/internal/domain/merch"
	"orgconsole/internal/domain/position"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

var treasurer = backend.TokenInfo{Subject: "ana", Position: position.Treasurer}

// --- Mock backend ---

type mockBackend struct {
	mu          sync.Mutex
	err         error
	reject      map[string]bool
	memberships []membership.Membership
	customers   []merch.Customer
	memberReqs  []backend.BulkMembershipRequest
	paymentReqs []backend.BulkPaymentRequest
}

// BulkCreateMemberships implements Backend for testing.
// PRE: none
// POST: returns one membership per id not in reject, or err when set
func (m *mockBackend) BulkCreateMemberships(_ context.Context, req backend.BulkMembershipRequest) ([]membership.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memberReqs = append(m.memberReqs, req)
	if m.err != nil {
		return nil, m.err
	}
	var out []membership.Membership
	for i, id := range req.StudentIDs {
		if m.reject[id] {
			continue
		}
		mem := membership.Membership{MembershipID: int64(i + 1), StudentID: id, Active: true, YearStart: req.YearStart, YearEnd: req.YearEnd}
		out = append(out, mem)
		m.memberships = append(m.memberships, mem)
	}
	return out, nil
}

// BulkMerchPayment implements Backend for testing.
// PRE: none
// POST: returns one order per entry not in reject, or err when set
func (m *mockBackend) BulkMerchPayment(_ context.Context, req backend.BulkPaymentRequest) ([]merch.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paymentReqs = append(m.paymentReqs, req)
	if m.err != nil {
		return nil, m.err
	}
	var out []merch.Order
	for i, id := range req.Entries {
		if m.reject[id] {
			continue
		}
		out = append(out, merch.Order{OrderID: int64(i + 1), StudentID: id, MerchVariantItemID: req.MerchVariantItemID, Quantity: req.Quantity})
	}
	return out, nil
}

// ExportMerchCustomers implements Backend for testing.
// PRE: none
// POST: returns every configured customer, or err when set
func (m *mockBackend) ExportMerchCustomers(_ context.Context, _ int64) ([]merch.Customer, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.customers, nil
}

// ListMemberships implements Backend for testing.
// PRE: none
// POST: returns every stored membership as a single page
func (m *mockBackend) ListMemberships(_ context.Context, q backend.MembershipQuery) (backend.Page[membership.Membership], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return backend.Page[membership.Membership]{}, m.err
	}
	return backend.Page[membership.Membership]{
		Content:       append([]membership.Membership(nil), m.memberships...),
		TotalElements: int64(len(m.memberships)),
		TotalPages:    1,
		Number:        q.Page,
		Size:          q.Size,
	}, nil
}

// ListMerchCustomers implements Backend for testing.
// PRE: none
// POST: returns every configured customer as a single page
func (m *mockBackend) ListMerchCustomers(_ context.Context, _ int64, q backend.CustomerQuery) (backend.Page[merch.Customer], error) {
	if m.err != nil {
		return backend.Page[merch.Customer]{}, m.err
	}
	return backend.Page[merch.Customer]{
		Content:       m.customers,
		TotalElements: int64(len(m.customers)),
		TotalPages:    1,
		Number:        q.Page,
		Size:          q.Size,
	}, nil
}

// setupConsole points the package globals at a mock backend and a fresh audit database.
func setupConsole(t *testing.T, b *mockBackend, operator backend.TokenInfo) *auditStore.SQLiteStore {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "console.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := auditStore.NewSQLiteStore(db)
	deps = Deps{
		Backend:     b,
		AuditStore:  store,
		Operator:    operator,
		CurrentYear: func() academicyear.Range { return academicyear.FromStart(2026) },
	}
	workspaces = middleware.NewWorkspaceStore(newSession)
	timeNow = func() time.Time { return testNow }
	t.Cleanup(func() { timeNow = time.Now })
	return store
}

func testMux() *http.ServeMux {
	mux := http.NewServeMux()
	registerRoutes(mux)
	return mux
}

// pageJSON is the part of a bulk page response the tests inspect.
type pageJSON struct {
	View struct {
		State   string
		Error   string
		Notice  string
		Entries []entry.Entry
		Summary struct {
			Count  int
			Target string
		}
	}
	Recent []middleware.RecentRow
}

// postAction sends one bulk action for ws as a JSON client.
func postAction(t *testing.T, mux http.Handler, ws *middleware.Workspace, kind, action string, form url.Values) (*httptest.ResponseRecorder, pageJSON) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/bulk/"+kind+"/"+action, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req = req.WithContext(middleware.ContextWithWorkspace(req.Context(), ws))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var page pageJSON
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
			t.Fatalf("decode %s: %v", action, err)
		}
	}
	return rec, page
}

// mustAction is postAction that fails the test on any non-200 status.
func mustAction(t *testing.T, mux http.Handler, ws *middleware.Workspace, kind, action string, form url.Values) pageJSON {
	t.Helper()
	rec, page := postAction(t, mux, ws, kind, action, form)
	if rec.Code != http.StatusOK {
		t.Fatalf("%s: status = %d, body = %s", action, rec.Code, rec.Body.String())
	}
	return page
}
