package middleware

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"orgconsole/internal/adapters/http/perf"
)

// DefaultSlowRequest is the default threshold for slow request warnings.
const DefaultSlowRequest = 200 * time.Millisecond

// requestIDCounter is an atomic counter for request IDs.
var requestIDCounter uint64

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the underlying ResponseWriter.
// PRE: code is a valid HTTP status code
// POST: status stored, header written to underlying ResponseWriter
func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Timing returns middleware that logs request duration.
// Normal requests log at DEBUG; slow requests (above threshold) log at WARN.
// If collector is non-nil, entries are recorded for /healthz next to the
// backend call timings the client records.
// A non-positive slow threshold uses DefaultSlowRequest.
func Timing(collector *perf.Collector, slow time.Duration) func(http.Handler) http.Handler {
	if slow <= 0 {
		slow = DefaultSlowRequest
	}
	threshold := float64(slow.Microseconds()) / 1000.0

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			start := time.Now()
			reqID := atomic.AddUint64(&requestIDCounter, 1)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				durationMs := float64(time.Since(start).Microseconds()) / 1000.0

				if durationMs >= threshold {
					slog.Warn("slow_request",
						"request_id", reqID,
						"method", r.Method,
						"path", path,
						"status", sw.status,
						"duration_ms", durationMs,
					)
				} else {
					slog.Debug("request",
						"request_id", reqID,
						"method", r.Method,
						"path", path,
						"status", sw.status,
						"duration_ms", durationMs,
					)
				}

				if collector != nil {
					collector.Record(perf.Entry{
						Kind:       perf.KindRequest,
						Path:       r.Method + " " + path,
						StatusCode: sw.status,
						DurationMs: durationMs,
						Timestamp:  start,
					})
				}
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
