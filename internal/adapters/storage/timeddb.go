package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"orgconsole/internal/adapters/http/perf"
)

// SQLDB is the database interface used by stores.
// Both *sql.DB and *TimedDB satisfy it.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ SQLDB = (*sql.DB)(nil)

// DefaultSlowQuery is the threshold above which queries log at WARN.
const DefaultSlowQuery = 50 * time.Millisecond

// TimedDB wraps a *sql.DB to log slow queries and record timings to a collector.
type TimedDB struct {
	db        *sql.DB
	collector *perf.Collector
	threshold time.Duration
}

var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps db with timing instrumentation. A zero threshold uses DefaultSlowQuery.
// PRE: db is a valid database connection; collector may be nil
// POST: Returns a TimedDB that logs slow queries and records to collector
func NewTimedDB(db *sql.DB, collector *perf.Collector, threshold time.Duration) *TimedDB {
	if threshold <= 0 {
		threshold = DefaultSlowQuery
	}
	return &TimedDB{db: db, collector: collector, threshold: threshold}
}

// RawDB returns the underlying *sql.DB.
func (t *TimedDB) RawDB() *sql.DB {
	return t.db
}

func (t *TimedDB) observe(op string, start time.Time) {
	elapsed := time.Since(start)
	durationMs := float64(elapsed.Microseconds()) / 1000.0
	if elapsed >= t.threshold {
		slog.Warn("slow_query", "op", op, "duration_ms", durationMs)
	} else {
		slog.Debug("query", "op", op, "duration_ms", durationMs)
	}
	t.collector.Record(perf.Entry{
		Kind:       perf.KindQuery,
		Path:       op,
		DurationMs: durationMs,
		Timestamp:  start,
	})
}

// ExecContext wraps sql.DB.ExecContext with timing.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	defer t.observe("ExecContext", time.Now())
	return t.db.ExecContext(ctx, query, args...)
}

// QueryContext wraps sql.DB.QueryContext with timing.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	defer t.observe("QueryContext", time.Now())
	return t.db.QueryContext(ctx, query, args...)
}

// QueryRowContext wraps sql.DB.QueryRowContext with timing.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	defer t.observe("QueryRowContext", time.Now())
	return t.db.QueryRowContext(ctx, query, args...)
}

// Close closes the underlying database connection.
func (t *TimedDB) Close() error {
	return t.db.Close()
}
