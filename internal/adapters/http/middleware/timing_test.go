package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"orgconsole/internal/adapters/http/perf"
)

// captureLogs routes slog output into a buffer for the duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// logLines decodes every JSON log line in buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

// TestTiming_RecordsStatusAndPath verifies a bulk action is logged with its status and recorded by route.
func TestTiming_RecordsStatusAndPath(t *testing.T) {
	logs := captureLogs(t)
	collector := perf.NewCollector(16)
	handler := Timing(collector, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/bulk/membership/confirm", nil))

	lines := logLines(t, logs)
	if len(lines) != 1 || lines[0]["msg"] != "request" || lines[0]["status"] != float64(422) {
		t.Errorf("logs = %+v", lines)
	}
	snap := collector.Snapshot(time.Time{}, 5)
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].Path != "POST /bulk/membership/confirm" {
		t.Errorf("paths = %+v", snap.SlowestPaths)
	}
}

// TestTiming_SlowThreshold verifies requests over the configured threshold warn.
func TestTiming_SlowThreshold(t *testing.T) {
	logs := captureLogs(t)
	handler := Timing(nil, time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Millisecond)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/bulk/payment/submit", nil))

	lines := logLines(t, logs)
	if len(lines) != 1 || lines[0]["msg"] != "slow_request" || lines[0]["level"] != "WARN" {
		t.Fatalf("logs = %+v", lines)
	}
	if lines[0]["path"] != "/bulk/payment/submit" || lines[0]["status"] != float64(200) {
		t.Errorf("slow entry = %+v", lines[0])
	}
}

// TestTiming_KeepsBackendTimingsApart verifies console requests and backend calls land in separate lists.
func TestTiming_KeepsBackendTimingsApart(t *testing.T) {
	collector := perf.NewCollector(16)
	collector.Record(perf.Entry{
		Kind:       perf.KindBackend,
		Path:       "POST /api/student-memberships/bulk",
		StatusCode: http.StatusBadRequest,
		DurationMs: 40,
		Timestamp:  time.Now(),
	})
	handler := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/bulk/membership", nil))

	snap := collector.Snapshot(time.Time{}, 5)
	if snap.TotalRecorded != 2 || snap.BackendErrors != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].Path != "GET /bulk/membership" {
		t.Errorf("request paths = %+v", snap.SlowestPaths)
	}
	if len(snap.SlowestBackend) != 1 || snap.SlowestBackend[0].Path != "POST /api/student-memberships/bulk" {
		t.Errorf("backend paths = %+v", snap.SlowestBackend)
	}
}
