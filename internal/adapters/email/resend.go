package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// ErrNoRecipients is returned when a request has no To addresses.
var ErrNoRecipients = errors.New("email has no recipients")

// ResendSender sends email via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a sender with the given API key and default from address.
// PRE: apiKey is a valid Resend API key; from is a valid sender address
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// Send sends a single email.
// PRE: req has at least one recipient and a subject
// POST: Email is queued for delivery; returns the Resend message ID
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if len(req.To) == 0 {
		return SendResult{}, ErrNoRecipients
	}
	from := req.From
	if from == "" {
		from = s.from
	}
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
		Text:    req.Text,
	})
	if err != nil {
		slog.Error("resend_send_failed", "err", err, "subject", req.Subject)
		return SendResult{}, fmt.Errorf("resend send failed: %w", err)
	}
	slog.Info("resend_sent", "message_id", sent.Id, "subject", req.Subject)
	return SendResult{MessageID: sent.Id, SentAt: time.Now()}, nil
}
