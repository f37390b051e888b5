package email

import (
	"context"
	"time"
)

// SendRequest is one outgoing message.
type SendRequest struct {
	To      []string
	From    string // falls back to the sender's default
	Subject string
	HTML    string
	Text    string
}

// SendResult is the provider's acknowledgement.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers messages through an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
