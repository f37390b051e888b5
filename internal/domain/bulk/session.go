package bulk

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"orgconsole/internal/domain/academicyear"
	"orgconsole/internal/domain/csvimport"
	"orgconsole/internal/domain/entry"
)

// Kind selects which bulk submission a session prepares.
type Kind string

const (
	KindMembership Kind = "membership"
	KindPayment    Kind = "payment"
)

// State is the lifecycle state of a bulk session.
type State string

const (
	StateClosed         State = "closed"
	StateEditing        State = "editing"
	StateConfirmPending State = "confirm_pending"
	StateSubmitting     State = "submitting"
)

// Domain errors
var (
	ErrUnknownKind        = errors.New("unknown bulk kind")
	ErrInvalidTransition  = errors.New("invalid bulk session transition")
	ErrNotConfirmable     = errors.New("bulk session has nothing valid to submit")
	ErrSubmissionInFlight = errors.New("a bulk submission is already in flight")
	ErrLocked             = errors.New("bulk session is locked while submitting")
	ErrInvalidPayment     = errors.New("payment needs a variant item and a quantity of at least 1")
	ErrFinanceOnly        = errors.New("only finance officers can record bulk payments")
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindMembership, KindPayment:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Noun returns the plural noun for records this kind creates.
func (k Kind) Noun() string {
	if k == KindPayment {
		return "payments"
	}
	return "memberships"
}

// TemplateFileName is the download name of the blank import template.
func (k Kind) TemplateFileName() string {
	return "bulk_" + string(k) + "_template.csv"
}

// FailureFallback is the message shown when the server gives no error text.
func (k Kind) FailureFallback() string {
	if k == KindPayment {
		return "Failed to process bulk payment. Please check stock availability."
	}
	return "Failed to create memberships"
}

// PaymentParams are the per-batch parameters of a bulk merch payment.
type PaymentParams struct {
	MerchVariantItemID int64
	SKU                string
	Quantity           int
}

// Validate checks the payment parameters.
// PRE: none
// POST: Returns ErrInvalidPayment unless MerchVariantItemID > 0 and Quantity >= 1
func (p PaymentParams) Validate() error {
	if p.MerchVariantItemID <= 0 || p.Quantity < 1 {
		return ErrInvalidPayment
	}
	return nil
}

// Label describes the payment target for summaries.
func (p PaymentParams) Label() string {
	sku := strings.TrimSpace(p.SKU)
	if sku == "" {
		sku = fmt.Sprintf("item #%d", p.MerchVariantItemID)
	}
	return fmt.Sprintf("%s x%d", sku, p.Quantity)
}

// Submission is the immutable snapshot handed to the submission client.
type Submission struct {
	Kind    Kind
	IDs     []string
	Year    academicyear.Range
	Payment PaymentParams
}

// Target returns the label of what the submission is for.
func (s Submission) Target() string {
	if s.Kind == KindPayment {
		return s.Payment.Label()
	}
	return s.Year.String()
}

// Summary is what the confirmation gate renders.
type Summary struct {
	Count  int
	Target string
	Status string
}

// View is a read-only snapshot of a session for rendering.
type View struct {
	Kind       Kind
	State      State
	Entries    []entry.Entry
	Summary    Summary
	CanConfirm bool
	InFlight   bool
	Year       academicyear.Range
	Current    academicyear.Range
	Payment    PaymentParams
	Error      string
	Notice     string
}

// Session is the bulk import modal: an entry list, its parameters, and the
// confirmation gate in front of a single submission.
// INVARIANT: at most one submission is in flight; entries are only mutated while Editing.
type Session struct {
	mu       sync.Mutex
	kind     Kind
	state    State
	entries  *entry.List
	year     academicyear.Range
	current  academicyear.Range
	payment  PaymentParams
	aliases  []string
	errMsg   string
	notice   string
	inFlight bool
}

// NewSession creates a closed session. current is the academic year that counts as active.
func NewSession(kind Kind, current academicyear.Range, aliases []string) *Session {
	return &Session{
		kind:    kind,
		state:   StateClosed,
		entries: entry.NewList(),
		year:    current,
		current: current,
		payment: PaymentParams{Quantity: 1},
		aliases: aliases,
	}
}

// Kind returns the session kind.
func (s *Session) Kind() Kind {
	return s.kind
}

// Open moves Closed to Editing with an empty list. Opening an open session is a no-op.
// POST: State is Editing (or unchanged if already open)
func (s *Session) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateClosed {
		return
	}
	s.entries.Clear()
	s.year = s.current
	s.payment = PaymentParams{Quantity: 1}
	s.errMsg = ""
	s.state = StateEditing
}

// Close discards entries and closes the session.
// PRE: no submission in flight
// POST: State is Closed and the entry list is empty
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrLocked
	}
	s.entries.Clear()
	s.errMsg = ""
	s.state = StateClosed
	return nil
}

// Add appends one manually typed identifier.
// PRE: State is Editing
// POST: Returns true if an entry was added (caller clears its input)
func (s *Session) Add(raw string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return false, err
	}
	return s.entries.Add(raw), nil
}

// Paste appends every identifier found in raw, duplicates included.
// PRE: State is Editing
// POST: Returns how many entries were appended
func (s *Session) Paste(raw string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return 0, err
	}
	return s.entries.Paste(raw), nil
}

// ImportCSV parses r and replaces the entry list with its identifiers.
// A parse failure is kept as the inline error and leaves existing entries untouched.
// PRE: State is Editing
// POST: On success the list holds exactly the parsed identifiers and the inline error is cleared
func (s *Session) ImportCSV(r io.Reader) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return 0, err
	}
	ids, err := csvimport.ParseIdentifiers(r, s.aliases)
	if err != nil {
		s.errMsg = err.Error()
		return 0, err
	}
	s.entries.Replace(ids)
	s.errMsg = ""
	return len(ids), nil
}

// SetError records an inline error that did not come from parsing, e.g. an unreadable upload.
func (s *Session) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
}

// Remove deletes one entry by id.
// PRE: State is Editing
func (s *Session) Remove(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.entries.Remove(id)
	return nil
}

// Clear empties the entry list.
// PRE: State is Editing
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.entries.Clear()
	return nil
}

// SelectYearStart selects the academic year beginning in start; the end year follows.
// PRE: State is Editing
// POST: Year == FromStart(start)
func (s *Session) SelectYearStart(start int) error {
	return s.SetYear(academicyear.FromStart(start))
}

// SetYear sets an explicit range. An unordered range is accepted but blocks the gate.
// PRE: State is Editing
func (s *Session) SetYear(r academicyear.Range) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.year = r
	return nil
}

// SetPayment sets the payment parameters. Invalid parameters are accepted but block the gate.
// PRE: State is Editing
func (s *Session) SetPayment(p PaymentParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.payment = p
	return nil
}

// CanConfirm reports whether the confirmation control is enabled.
// INVARIANT: Session is not mutated
func (s *Session) CanConfirm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canConfirm()
}

// RequestConfirm moves Editing to ConfirmPending.
// PRE: State is Editing and CanConfirm()
// POST: State is ConfirmPending
func (s *Session) RequestConfirm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEditing {
		return ErrInvalidTransition
	}
	if !s.canConfirm() {
		return ErrNotConfirmable
	}
	s.state = StateConfirmPending
	return nil
}

// Cancel returns from ConfirmPending to Editing without touching entries.
// PRE: State is ConfirmPending
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConfirmPending {
		return ErrInvalidTransition
	}
	s.state = StateEditing
	return nil
}

// BeginSubmit locks the session and returns the snapshot to send.
// PRE: State is ConfirmPending and no submission is in flight
// POST: State is Submitting; every mutating call returns ErrLocked until Complete or Fail
func (s *Session) BeginSubmit() (Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return Submission{}, ErrSubmissionInFlight
	}
	if s.state != StateConfirmPending {
		return Submission{}, ErrInvalidTransition
	}
	if !s.canConfirm() {
		return Submission{}, ErrNotConfirmable
	}
	s.inFlight = true
	s.state = StateSubmitting
	s.errMsg = ""
	return Submission{
		Kind:    s.kind,
		IDs:     s.entries.Values(),
		Year:    s.year,
		Payment: s.payment,
	}, nil
}

// Complete settles a successful (full or partial) submission and closes the session.
// PRE: State is Submitting
// POST: State is Closed, entries are discarded, Notice holds the outcome message
func (s *Session) Complete(o Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSubmitting {
		return ErrInvalidTransition
	}
	s.inFlight = false
	s.entries.Clear()
	s.notice = o.Message()
	s.errMsg = ""
	s.state = StateClosed
	return nil
}

// Fail settles a failed submission and reopens the list for retry.
// PRE: State is Submitting
// POST: State is Editing, entries are intact, Error holds msg
func (s *Session) Fail(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSubmitting {
		return ErrInvalidTransition
	}
	s.inFlight = false
	s.errMsg = msg
	s.state = StateEditing
	return nil
}

// View returns a snapshot for rendering.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Kind:       s.kind,
		State:      s.state,
		Entries:    s.entries.All(),
		Summary:    s.summary(),
		CanConfirm: s.canConfirm(),
		InFlight:   s.inFlight,
		Year:       s.year,
		Current:    s.current,
		Payment:    s.payment,
		Error:      s.errMsg,
		Notice:     s.notice,
	}
}

// Summary returns the count, target and status label for the confirmation gate.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary()
}

func (s *Session) summary() Summary {
	sum := Summary{Count: len(s.entries.Valid())}
	if s.kind == KindPayment {
		sum.Target = s.payment.Label()
		return sum
	}
	sum.Target = s.year.String()
	sum.Status = s.year.Status(s.current)
	return sum
}

func (s *Session) canConfirm() bool {
	if s.inFlight || len(s.entries.Valid()) == 0 {
		return false
	}
	if s.kind == KindPayment {
		return s.payment.Validate() == nil
	}
	return s.year.Validate() == nil
}

func (s *Session) editable() error {
	if s.inFlight {
		return ErrLocked
	}
	if s.state != StateEditing {
		return ErrInvalidTransition
	}
	return nil
}
