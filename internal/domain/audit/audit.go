package audit

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category groups audit events by concern.
type Category string

const (
	CategoryBulk   Category = "bulk"
	CategoryExport Category = "export"
)

// Action is what the operator did.
type Action string

const (
	ActionBulkCreate  Action = "bulk_create"
	ActionBulkPayment Action = "bulk_payment"
	ActionExport      Action = "export"
)

// Actions lists every action in display order.
var Actions = []Action{ActionBulkCreate, ActionBulkPayment, ActionExport}

// Result is how the action ended.
type Result string

const (
	ResultSuccess Result = "success"
	ResultPartial Result = "partial"
	ResultFailed  Result = "failed"
)

// Severity follows Result: success is info, partial is warning, failed is critical.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ErrUnknownAction is returned by ParseAction for unrecognised input.
var ErrUnknownAction = errors.New("unknown audit action")

// ParseAction validates an action string. Empty input returns "" (no filter).
func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", ErrUnknownAction
}

// Event is one entry in the local audit trail.
type Event struct {
	ID           string
	Timestamp    time.Time
	Category     Category
	Action       Action
	Result       Result
	Severity     Severity
	Actor        string
	ResourceType string
	ResourceID   string
	Description  string
	Attempted    int
	Succeeded    int
	Missing      []string
}

// NewEvent creates an event stamped with now and a fresh ID.
// PRE: action is non-empty
// POST: Returns a successful info-level Event
func NewEvent(category Category, action Action, actor string, now time.Time) Event {
	return Event{
		ID:        uuid.New().String(),
		Timestamp: now,
		Category:  category,
		Action:    action,
		Result:    ResultSuccess,
		Severity:  SeverityInfo,
		Actor:     actor,
	}
}

// WithResult sets the result and the matching severity.
// POST: Severity follows r
func (e Event) WithResult(r Result) Event {
	e.Result = r
	switch r {
	case ResultPartial:
		e.Severity = SeverityWarning
	case ResultFailed:
		e.Severity = SeverityCritical
	default:
		e.Severity = SeverityInfo
	}
	return e
}

// WithResource sets resource information.
func (e Event) WithResource(resourceType, resourceID string) Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithDescription sets the event description.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithCounts records how many records were attempted, how many succeeded, and which were missing.
func (e Event) WithCounts(attempted, succeeded int, missing []string) Event {
	e.Attempted = attempted
	e.Succeeded = succeeded
	e.Missing = missing
	return e
}

// MissingJSON encodes Missing for storage. A nil slice encodes as "[]".
func (e Event) MissingJSON() string {
	if len(e.Missing) == 0 {
		return "[]"
	}
	b, err := json.Marshal(e.Missing)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// ParseMissing decodes a stored Missing list. Empty or bad input returns nil.
func ParseMissing(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil || len(out) == 0 {
		return nil
	}
	return out
}
