package bulk

import (
	"errors"
	"fmt"
	"strings"
)

// Outcome is the result of a bulk submission the backend accepted, possibly in part.
type Outcome struct {
	Kind      Kind
	Target    string
	Attempted int
	Succeeded int
	Missing   []string
}

// NewOutcome compares what was sent with the identifiers the backend returned.
// PRE: created holds the identifiers of records the backend created
// POST: Succeeded == len(created); Missing lists submitted ids absent from created, in submit order
func NewOutcome(sub Submission, created []string) Outcome {
	got := make(map[string]int, len(created))
	for _, id := range created {
		got[id]++
	}
	var missing []string
	for _, id := range sub.IDs {
		if got[id] > 0 {
			got[id]--
			continue
		}
		missing = append(missing, id)
	}
	return Outcome{
		Kind:      sub.Kind,
		Target:    sub.Target(),
		Attempted: len(sub.IDs),
		Succeeded: len(created),
		Missing:   missing,
	}
}

// Partial reports whether the backend accepted fewer records than were submitted.
func (o Outcome) Partial() bool {
	return o.Succeeded < o.Attempted
}

// Message is the user-facing result line. Counts always come from the response.
func (o Outcome) Message() string {
	verb := "Created"
	if o.Kind == KindPayment {
		verb = "Recorded"
	}
	if o.Partial() {
		return fmt.Sprintf("%s %d of %d %s", verb, o.Succeeded, o.Attempted, o.Kind.Noun())
	}
	return fmt.Sprintf("%s %d %s for %s", verb, o.Succeeded, o.Kind.Noun(), o.Target)
}

// serverMessager is implemented by transport errors that carry a server-provided message.
type serverMessager interface {
	ServerMessage() string
}

// FailureMessage returns the server's own message for err when it has one, otherwise fallback.
func FailureMessage(err error, fallback string) string {
	var sm serverMessager
	if errors.As(err, &sm) {
		if msg := strings.TrimSpace(sm.ServerMessage()); msg != "" {
			return msg
		}
	}
	return fallback
}

// detailMessager is implemented by transport errors that can put the server's detail text first.
type detailMessager interface {
	ServerDetail() string
}

// FailureMessage returns the text shown when a submission of kind k fails.
// Payment rejections carry the stock reason in the detail, so it wins over the status reason.
func (k Kind) FailureMessage(err error) string {
	if k == KindPayment {
		var dm detailMessager
		if errors.As(err, &dm) {
			if msg := strings.TrimSpace(dm.ServerDetail()); msg != "" {
				return msg
			}
		}
	}
	return FailureMessage(err, k.FailureFallback())
}
