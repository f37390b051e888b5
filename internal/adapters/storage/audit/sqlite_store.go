package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"orgconsole/internal/adapters/storage"
	domain "orgconsole/internal/domain/audit"
)

// timestampLayout is fixed-width UTC so stored values sort and compare as strings.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned by GetByID when no event has the given ID.
var ErrNotFound = errors.New("audit event not found")

const selectColumns = `SELECT id, timestamp, category, action, result, severity, actor, resource_type, resource_id, description, attempted, succeeded, missing FROM audit_event`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists an audit event.
// PRE: event.ID is non-empty
// POST: Event is persisted
func (s *SQLiteStore) Save(ctx context.Context, e domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_event (id, timestamp, category, action, result, severity, actor, resource_type, resource_id, description, attempted, succeeded, missing)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, formatTime(e.Timestamp), string(e.Category), string(e.Action), string(e.Result),
		string(e.Severity), e.Actor, e.ResourceType, e.ResourceID, e.Description,
		e.Attempted, e.Succeeded, e.MissingJSON())
	if err != nil {
		return fmt.Errorf("save audit event: %w", err)
	}
	return nil
}

// List returns audit events matching filter, newest first.
// PRE: limit > 0
// POST: Returns at most limit events ordered by timestamp desc
func (s *SQLiteStore) List(ctx context.Context, f Filter, limit int) ([]domain.Event, error) {
	query := selectColumns + ` WHERE 1=1`
	var args []any

	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, string(f.Category))
	}
	if f.Action != "" {
		query += " AND action = ?"
		args = append(args, string(f.Action))
	}
	if f.Result != "" {
		query += " AND result = ?"
		args = append(args, string(f.Result))
	}
	if !f.From.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, formatTime(f.To))
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID retrieves a specific audit event.
// PRE: id is non-empty
// POST: Returns the event or ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Event, error) {
	e, err := scanEvent(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, ErrNotFound
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (domain.Event, error) {
	var e domain.Event
	var ts, missing string
	err := row.Scan(&e.ID, &ts, &e.Category, &e.Action, &e.Result, &e.Severity, &e.Actor,
		&e.ResourceType, &e.ResourceID, &e.Description, &e.Attempted, &e.Succeeded, &missing)
	if err != nil {
		return domain.Event{}, err
	}
	e.Timestamp, _ = time.Parse(timestampLayout, ts)
	e.Missing = domain.ParseMissing(missing)
	return e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
