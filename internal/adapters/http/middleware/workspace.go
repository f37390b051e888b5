package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"orgconsole/internal/domain/bulk"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const workspaceContextKey contextKey = "workspace"

// WorkspaceCookieName names the cookie that ties a browser to its workspace.
const WorkspaceCookieName = "orgconsole_workspace"

// workspaceTTL is how long an idle workspace is kept.
const workspaceTTL = 24 * time.Hour

// sweepInterval spaces out the idle-workspace sweeps run by Create.
const sweepInterval = 10 * time.Minute

// RecentRow is one line of the list a successful submission refreshed.
type RecentRow struct {
	StudentID string
	Name      string
	Detail    string
}

// Workspace is one browser's console state: a bulk session per kind plus the
// list each kind last refreshed.
type Workspace struct {
	Token string

	mu        sync.Mutex
	sessions  map[bulk.Kind]*bulk.Session
	recent    map[bulk.Kind][]RecentRow
	merchID   int64
	lastSeen  time.Time
	newSessFn func(bulk.Kind) *bulk.Session
}

// Session returns the workspace's session for kind, creating it closed on first use.
func (ws *Workspace) Session(kind bulk.Kind) *bulk.Session {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	s, ok := ws.sessions[kind]
	if !ok {
		s = ws.newSessFn(kind)
		ws.sessions[kind] = s
	}
	return s
}

// SetRecent replaces the refreshed list for kind.
func (ws *Workspace) SetRecent(kind bulk.Kind, rows []RecentRow) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.recent[kind] = rows
}

// Recent returns the refreshed list for kind.
func (ws *Workspace) Recent(kind bulk.Kind) []RecentRow {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.recent[kind]
}

// SetMerchID remembers which merch the payment session is recording against.
func (ws *Workspace) SetMerchID(id int64) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.merchID = id
}

// MerchID returns the merch the payment session last targeted, or 0.
func (ws *Workspace) MerchID() int64 {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.merchID
}

// WorkspaceStore is an in-memory workspace store keyed by cookie token.
type WorkspaceStore struct {
	mu         sync.Mutex
	workspaces map[string]*Workspace
	newSession func(bulk.Kind) *bulk.Session
	now        func() time.Time
	lastSweep  time.Time
}

// NewWorkspaceStore creates a store whose workspaces build sessions with newSession.
func NewWorkspaceStore(newSession func(bulk.Kind) *bulk.Session) *WorkspaceStore {
	return &WorkspaceStore{
		workspaces: make(map[string]*Workspace),
		newSession: newSession,
		now:        time.Now,
	}
}

// Create stores a new empty workspace and returns it, first dropping idle
// workspaces if the last sweep is older than sweepInterval.
// POST: The workspace is retrievable by its Token
func (st *WorkspaceStore) Create() *Workspace {
	now := st.now()
	ws := &Workspace{
		Token:     uuid.New().String(),
		sessions:  make(map[bulk.Kind]*bulk.Session),
		recent:    make(map[bulk.Kind][]RecentRow),
		lastSeen:  now,
		newSessFn: st.newSession,
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if now.Sub(st.lastSweep) >= sweepInterval {
		st.sweepLocked(now)
	}
	st.workspaces[ws.Token] = ws
	return ws
}

// sweepLocked deletes every workspace idle longer than workspaceTTL.
// PRE: st.mu is held
func (st *WorkspaceStore) sweepLocked(now time.Time) {
	st.lastSweep = now
	for token, ws := range st.workspaces {
		ws.mu.Lock()
		idle := now.Sub(ws.lastSeen) > workspaceTTL
		ws.mu.Unlock()
		if idle {
			delete(st.workspaces, token)
		}
	}
}

// Get retrieves a workspace by token and marks it as seen.
// PRE: token is non-empty
// POST: Returns false for unknown tokens and workspaces idle longer than 24 hours
func (st *WorkspaceStore) Get(token string) (*Workspace, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	ws, ok := st.workspaces[token]
	if !ok {
		return nil, false
	}
	now := st.now()
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if now.Sub(ws.lastSeen) > workspaceTTL {
		delete(st.workspaces, token)
		return nil, false
	}
	ws.lastSeen = now
	return ws, true
}

// Len returns the number of stored workspaces.
func (st *WorkspaceStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.workspaces)
}

// WorkspaceMiddleware attaches the caller's workspace to the request context.
// A workspace is only created, and its cookie set, for paths under prefix;
// elsewhere an unknown or missing cookie leaves the context without one.
func WorkspaceMiddleware(store *WorkspaceStore, secure bool, prefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var ws *Workspace
			if cookie, err := r.Cookie(WorkspaceCookieName); err == nil && cookie.Value != "" {
				ws, _ = store.Get(cookie.Value)
			}
			if ws == nil && strings.HasPrefix(r.URL.Path, prefix) {
				ws = store.Create()
				SetWorkspaceCookie(w, ws.Token, secure)
			}
			if ws != nil {
				r = r.WithContext(ContextWithWorkspace(r.Context(), ws))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WorkspaceFromContext extracts the workspace from the request context.
func WorkspaceFromContext(ctx context.Context) (*Workspace, bool) {
	ws, ok := ctx.Value(workspaceContextKey).(*Workspace)
	return ws, ok
}

// ContextWithWorkspace returns a context with the given workspace set.
func ContextWithWorkspace(ctx context.Context, ws *Workspace) context.Context {
	return context.WithValue(ctx, workspaceContextKey, ws)
}

// SetWorkspaceCookie sets the workspace cookie on the response.
func SetWorkspaceCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     WorkspaceCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   int(workspaceTTL / time.Second),
	})
}
