package orchestrators

import (
	"context"

	"orgconsole/internal/adapters/backend"
	auditStore "orgconsole/internal/adapters/storage/audit"
	"orgconsole/internal/domain/audit"
	"orgconsole/internal/domain/membership"
	"orgconsole/internal/domain/merch"
)

// MembershipSubmitter creates memberships in bulk on the backend.
type MembershipSubmitter interface {
	BulkCreateMemberships(ctx context.Context, req backend.BulkMembershipRequest) ([]membership.Membership, error)
}

// PaymentSubmitter records merch payments in bulk on the backend.
type PaymentSubmitter interface {
	BulkMerchPayment(ctx context.Context, req backend.BulkPaymentRequest) ([]merch.Order, error)
}

// CustomerExporter fetches every customer of a merch.
type CustomerExporter interface {
	ExportMerchCustomers(ctx context.Context, merchID int64) ([]merch.Customer, error)
}

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Save(ctx context.Context, event audit.Event) error
}

// AuditLister reads audit events back.
type AuditLister interface {
	List(ctx context.Context, filter auditStore.Filter, limit int) ([]audit.Event, error)
}

var (
	_ MembershipSubmitter = (*backend.Client)(nil)
	_ PaymentSubmitter    = (*backend.Client)(nil)
	_ CustomerExporter    = (*backend.Client)(nil)
	_ AuditRecorder       = (*auditStore.SQLiteStore)(nil)
	_ AuditLister         = (*auditStore.SQLiteStore)(nil)
)
