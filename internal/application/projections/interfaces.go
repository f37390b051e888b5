package projections

import (
	"context"

	"orgconsole/internal/adapters/backend"
	auditStore "orgconsole/internal/adapters/storage/audit"
	domainAudit "orgconsole/internal/domain/audit"
	"orgconsole/internal/domain/membership"
	"orgconsole/internal/domain/merch"
)

// MembershipLister interface for membership page queries.
type MembershipLister interface {
	ListMemberships(ctx context.Context, q backend.MembershipQuery) (backend.Page[membership.Membership], error)
}

// CustomerLister interface for merch customer page queries.
type CustomerLister interface {
	ListMerchCustomers(ctx context.Context, merchID int64, q backend.CustomerQuery) (backend.Page[merch.Customer], error)
}

// AuditLister interface for audit trail queries.
type AuditLister interface {
	List(ctx context.Context, filter auditStore.Filter, limit int) ([]domainAudit.Event, error)
}

var (
	_ MembershipLister = (*backend.Client)(nil)
	_ CustomerLister   = (*backend.Client)(nil)
	_ AuditLister      = (*auditStore.SQLiteStore)(nil)
)
