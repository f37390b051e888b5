package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"orgconsole/internal/adapters/backend"
	"orgconsole/internal/domain/audit"
	"orgconsole/internal/domain/bulk"
	"orgconsole/internal/domain/membership"
	"orgconsole/internal/domain/merch"
)

// ErrNoSession is returned when an orchestrator is called without a bulk session.
var ErrNoSession = errors.New("bulk session is required")

// SubmissionError is a bulk submission the backend rejected or never received.
// Message is what the operator sees: the server's own text when it sent one.
type SubmissionError struct {
	Kind    bulk.Kind
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	return e.Message
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// SubmitBulkInput carries the session to submit and who is submitting it.
// PRE: Session is in ConfirmPending
// INVARIANT: The session is the only source of ids and parameters
type SubmitBulkInput struct {
	Session  *bulk.Session
	Operator backend.TokenInfo
}

// SubmitBulkDeps holds dependencies for SubmitBulk.
type SubmitBulkDeps struct {
	Memberships MembershipSubmitter
	Payments    PaymentSubmitter
	AuditStore  AuditRecorder
	Reports     SendReportDeps
	// Refresh re-fetches the list the submission changed. Optional.
	Refresh func(ctx context.Context, kind bulk.Kind) error
	Now     func() time.Time
}

// ExecuteSubmitBulk sends the session's entries to the backend and settles the session.
// PRE: Session is in ConfirmPending with CanConfirm() true
// POST: On success the session is Closed with the outcome message, the audit trail has
//
//	the event, a report is sent when enabled, and Refresh has run;
//	on failure the session is back in Editing with its entries and the failure message.
//
// INVARIANT: At most one submission per session is in flight; nothing is retried.
func ExecuteSubmitBulk(ctx context.Context, input SubmitBulkInput, deps SubmitBulkDeps) (bulk.Outcome, error) {
	s := input.Session
	if s == nil {
		return bulk.Outcome{}, ErrNoSession
	}
	now := nowFunc(deps.Now)
	kind := s.Kind()

	if err := checkOperator(kind, input.Operator, now()); err != nil {
		// Refused before anything was sent: back to the list with the reason.
		if s.Cancel() == nil {
			s.SetError(err.Error())
		}
		slog.Warn("bulk_submit_refused", "kind", kind, "actor", input.Operator.Actor(), "err", err)
		return bulk.Outcome{}, err
	}

	sub, err := s.BeginSubmit()
	if err != nil {
		return bulk.Outcome{}, err
	}

	created, err := send(ctx, sub, deps)
	if err != nil {
		msg := kind.FailureMessage(err)
		if ferr := s.Fail(msg); ferr != nil {
			slog.Error("bulk_session_settle_failed", "kind", kind, "err", ferr)
		}
		slog.Warn("bulk_submit_failed", "kind", kind, "count", len(sub.IDs), "target", sub.Target(), "err", err)
		recordAudit(ctx, deps.AuditStore, submissionEvent(sub, input.Operator.Actor(), now()).
			WithResult(audit.ResultFailed).
			WithCounts(len(sub.IDs), 0, nil).
			WithDescription(msg))
		return bulk.Outcome{}, &SubmissionError{Kind: kind, Message: msg, Err: err}
	}

	outcome := bulk.NewOutcome(sub, created)
	if err := s.Complete(outcome); err != nil {
		slog.Error("bulk_session_settle_failed", "kind", kind, "err", err)
	}

	result := audit.ResultSuccess
	if outcome.Partial() {
		result = audit.ResultPartial
		slog.Warn("bulk_submit_partial", "kind", kind, "attempted", outcome.Attempted, "succeeded", outcome.Succeeded, "missing", outcome.Missing)
	} else {
		slog.Info("bulk_submit", "kind", kind, "count", outcome.Succeeded, "target", outcome.Target)
	}
	at := now()
	recordAudit(ctx, deps.AuditStore, submissionEvent(sub, input.Operator.Actor(), at).
		WithResult(result).
		WithCounts(outcome.Attempted, outcome.Succeeded, outcome.Missing).
		WithDescription(outcome.Message()))

	if deps.Reports.Enabled() {
		_, rerr := ExecuteSendReport(ctx, SendReportInput{Outcome: outcome, Actor: input.Operator.Actor(), At: at}, deps.Reports)
		if rerr != nil {
			slog.Error("bulk_report_failed", "kind", kind, "err", rerr)
		}
	}

	if deps.Refresh != nil {
		if rerr := deps.Refresh(ctx, kind); rerr != nil {
			slog.Warn("bulk_refresh_failed", "kind", kind, "err", rerr)
		}
	}
	return outcome, nil
}

// checkOperator applies the token checks that can be made before sending.
// A zero TokenInfo has no expiry, so only the finance gate applies to it.
func checkOperator(kind bulk.Kind, op backend.TokenInfo, now time.Time) error {
	if op.Expired(now) {
		return backend.ErrTokenExpired
	}
	if kind == bulk.KindPayment && !op.Position.IsFinance() {
		return bulk.ErrFinanceOnly
	}
	return nil
}

// send performs the backend call for sub and returns the student ids it created.
func send(ctx context.Context, sub bulk.Submission, deps SubmitBulkDeps) ([]string, error) {
	switch sub.Kind {
	case bulk.KindPayment:
		orders, err := deps.Payments.BulkMerchPayment(ctx, backend.BulkPaymentRequest{
			Entries:            sub.IDs,
			MerchVariantItemID: sub.Payment.MerchVariantItemID,
			Quantity:           sub.Payment.Quantity,
		})
		if err != nil {
			return nil, err
		}
		return merch.StudentIDs(orders), nil
	default:
		created, err := deps.Memberships.BulkCreateMemberships(ctx, backend.BulkMembershipRequest{
			StudentIDs: sub.IDs,
			YearStart:  sub.Year.Start,
			YearEnd:    sub.Year.End,
		})
		if err != nil {
			return nil, err
		}
		return membership.StudentIDs(created), nil
	}
}

func submissionEvent(sub bulk.Submission, actor string, at time.Time) audit.Event {
	if sub.Kind == bulk.KindPayment {
		return audit.NewEvent(audit.CategoryBulk, audit.ActionBulkPayment, actor, at).
			WithResource("merch_variant_item", sub.Target())
	}
	return audit.NewEvent(audit.CategoryBulk, audit.ActionBulkCreate, actor, at).
		WithResource("academic_year", sub.Target())
}

// recordAudit saves e. The audit trail is local bookkeeping, so a failure is logged, not returned.
func recordAudit(ctx context.Context, store AuditRecorder, e audit.Event) {
	if store == nil {
		return
	}
	if err := store.Save(ctx, e); err != nil {
		slog.Error("audit_save_failed", "action", e.Action, "event_id", e.ID, "err", err)
	}
}

func nowFunc(f func() time.Time) func() time.Time {
	if f == nil {
		return time.Now
	}
	return f
}
