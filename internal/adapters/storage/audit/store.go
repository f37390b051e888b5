package audit

import (
	"context"
	"time"

	domain "orgconsole/internal/domain/audit"
	"orgconsole/internal/domain/period"
)

// Store defines the interface for audit event persistence.
type Store interface {
	// Save persists an audit event.
	// PRE: event has a non-empty ID
	// POST: Event is persisted
	Save(ctx context.Context, event domain.Event) error

	// List returns audit events matching filter.
	// PRE: limit > 0
	// POST: Returns events ordered by timestamp desc
	List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error)

	// GetByID retrieves a specific audit event.
	// PRE: id is non-empty
	// POST: Returns the event or ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Event, error)
}

// Filter defines query parameters for listing audit events. Zero values match everything.
type Filter struct {
	Category domain.Category
	Action   domain.Action
	Result   domain.Result
	From     time.Time
	To       time.Time
}

// PeriodFilter builds a filter for action over the window of p around now.
// ALL_TIME leaves the time bounds open.
func PeriodFilter(p period.Period, action domain.Action, now time.Time) Filter {
	f := Filter{Action: action}
	if w, ok := p.Range(now); ok {
		f.From = w.Start
		f.To = w.End
	}
	return f
}

var _ Store = (*SQLiteStore)(nil)
