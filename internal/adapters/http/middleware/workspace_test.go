package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orgconsole/internal/domain/academicyear"
	"orgconsole/internal/domain/bulk"
)

func newTestStore() *WorkspaceStore {
	return NewWorkspaceStore(func(k bulk.Kind) *bulk.Session {
		return bulk.NewSession(k, academicyear.FromStart(2026), nil)
	})
}

// TestWorkspaceMiddleware_SetsCookieOnce verifies a new browser gets a workspace and keeps it.
func TestWorkspaceMiddleware_SetsCookieOnce(t *testing.T) {
	store := newTestStore()
	var seen []*Workspace
	handler := WorkspaceMiddleware(store, false, "/bulk/")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, ok := WorkspaceFromContext(r.Context())
		if !ok {
			t.Error("workspace missing from context")
		}
		seen = append(seen, ws)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/bulk/membership", nil))
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != WorkspaceCookieName {
		t.Fatalf("cookies = %v", cookies)
	}

	req := httptest.NewRequest("GET", "/bulk/membership", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if len(rr.Result().Cookies()) != 0 {
		t.Error("known workspace should not be re-issued")
	}
	if seen[0] != seen[1] || store.Len() != 1 {
		t.Errorf("workspaces differ or store has %d", store.Len())
	}
}

// TestWorkspace_SessionPerKind verifies each kind gets its own lazily created session.
func TestWorkspace_SessionPerKind(t *testing.T) {
	ws := newTestStore().Create()
	m := ws.Session(bulk.KindMembership)
	if m != ws.Session(bulk.KindMembership) {
		t.Error("same kind should return the same session")
	}
	if p := ws.Session(bulk.KindPayment); p == m || p.Kind() != bulk.KindPayment {
		t.Error("payment kind should have its own session")
	}
}

// TestWorkspaceStore_Expires verifies idle workspaces are dropped.
func TestWorkspaceStore_Expires(t *testing.T) {
	store := newTestStore()
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ws := store.Create()

	now = now.Add(23 * time.Hour)
	if _, ok := store.Get(ws.Token); !ok {
		t.Fatal("workspace should still be live")
	}
	now = now.Add(25 * time.Hour)
	if _, ok := store.Get(ws.Token); ok {
		t.Error("idle workspace should expire")
	}
	if store.Len() != 0 {
		t.Errorf("store len = %d", store.Len())
	}
}

// TestWorkspaceMiddleware_OnlyCreatesUnderPrefix verifies probes and list pages never mint workspaces.
func TestWorkspaceMiddleware_OnlyCreatesUnderPrefix(t *testing.T) {
	store := newTestStore()
	var attached bool
	handler := WorkspaceMiddleware(store, false, "/bulk/")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, attached = WorkspaceFromContext(r.Context())
	}))

	for _, path := range []string{"/healthz", "/memberships", "/history"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
		if attached || len(rr.Result().Cookies()) != 0 {
			t.Errorf("%s: attached = %v, cookies = %v", path, attached, rr.Result().Cookies())
		}
	}
	if store.Len() != 0 {
		t.Errorf("store len = %d, want 0", store.Len())
	}

	ws := store.Create()
	req := httptest.NewRequest("GET", "/history", nil)
	req.AddCookie(&http.Cookie{Name: WorkspaceCookieName, Value: ws.Token})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !attached {
		t.Error("known workspace should be attached outside the prefix")
	}
}

// TestWorkspaceStore_CreateSweepsIdle verifies abandoned workspaces are reclaimed without their token coming back.
func TestWorkspaceStore_CreateSweepsIdle(t *testing.T) {
	store := newTestStore()
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	for i := 0; i < 100; i++ {
		store.Create()
	}
	kept := store.Create()

	now = now.Add(12 * time.Hour)
	if _, ok := store.Get(kept.Token); !ok {
		t.Fatal("kept workspace should be live")
	}
	store.Create()
	if store.Len() != 102 {
		t.Fatalf("store len = %d, want 102 before the TTL passes", store.Len())
	}

	now = now.Add(13 * time.Hour)
	store.Create()
	if store.Len() != 3 {
		t.Errorf("store len = %d, want 3 (kept, the 12h one, the new one)", store.Len())
	}
	if _, ok := store.Get(kept.Token); !ok {
		t.Error("recently seen workspace should survive the sweep")
	}
}
