package projections

import (
	"context"
	"time"

	auditStore "orgconsole/internal/adapters/storage/audit"
	domainAudit "orgconsole/internal/domain/audit"
	"orgconsole/internal/domain/period"
)

// DefaultHistoryLimit bounds the history page.
const DefaultHistoryLimit = 200

// GetHistoryQuery carries query parameters.
type GetHistoryQuery struct {
	Period period.Period
	Action domainAudit.Action
	Limit  int
}

// GetHistoryResult carries the query result.
type GetHistoryResult struct {
	Events []domainAudit.Event
	Period period.Period
	Action domainAudit.Action
	Window period.Window
	// Bounded is false for ALL_TIME, which has no window.
	Bounded bool
}

// GetHistoryDeps holds dependencies for GetHistory.
type GetHistoryDeps struct {
	AuditStore AuditLister
	Now        func() time.Time
}

// QueryGetHistory lists audit events in a period, newest first.
// PRE: Period is a known period; empty means ALL_TIME
// POST: Returns at most Limit events whose timestamps fall in the period window
func QueryGetHistory(ctx context.Context, query GetHistoryQuery, deps GetHistoryDeps) (GetHistoryResult, error) {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	p := query.Period
	if p == "" {
		p = period.AllTime
	}
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	at := now()
	events, err := deps.AuditStore.List(ctx, auditStore.PeriodFilter(p, query.Action, at), limit)
	if err != nil {
		return GetHistoryResult{}, err
	}
	w, bounded := p.Range(at)
	return GetHistoryResult{
		Events:  events,
		Period:  p,
		Action:  query.Action,
		Window:  w,
		Bounded: bounded,
	}, nil
}
