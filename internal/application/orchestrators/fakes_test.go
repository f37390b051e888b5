package orchestrators

import (
	"context"
	"sync"

	"orgconsole/internal/adapters/backend"
	auditStore "orgconsole/internal/adapters/storage/audit"
	"orgconsole/internal/domain/audit"
	"orgconsole/internal/domain/membership"
	"orgconsole/internal/domain/merch"
)

// fakeBackend creates one record per id unless the id is listed in reject.
type fakeBackend struct {
	mu          sync.Mutex
	reject      map[string]bool
	err         error
	customers   []merch.Customer
	memberReqs  []backend.BulkMembershipRequest
	paymentReqs []backend.BulkPaymentRequest
}

func (f *fakeBackend) BulkCreateMemberships(_ context.Context, req backend.BulkMembershipRequest) ([]membership.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberReqs = append(f.memberReqs, req)
	if f.err != nil {
		return nil, f.err
	}
	var out []membership.Membership
	for i, id := range req.StudentIDs {
		if f.reject[id] {
			continue
		}
		out = append(out, membership.Membership{MembershipID: int64(i + 1), StudentID: id, YearStart: req.YearStart, YearEnd: req.YearEnd, Active: true})
	}
	return out, nil
}

func (f *fakeBackend) BulkMerchPayment(_ context.Context, req backend.BulkPaymentRequest) ([]merch.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paymentReqs = append(f.paymentReqs, req)
	if f.err != nil {
		return nil, f.err
	}
	var out []merch.Order
	for i, id := range req.Entries {
		if f.reject[id] {
			continue
		}
		out = append(out, merch.Order{OrderID: int64(i + 1), StudentID: id, MerchVariantItemID: req.MerchVariantItemID, Quantity: req.Quantity})
	}
	return out, nil
}

func (f *fakeBackend) ExportMerchCustomers(_ context.Context, _ int64) ([]merch.Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.customers, nil
}

// fakeAudit keeps events in memory, newest last.
type fakeAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (f *fakeAudit) Save(_ context.Context, e audit.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeAudit) List(_ context.Context, filter auditStore.Filter, limit int) ([]audit.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []audit.Event
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := f.events[i]
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if !filter.From.IsZero() && e.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.Timestamp.After(filter.To) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeAudit) all() []audit.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]audit.Event(nil), f.events...)
}
