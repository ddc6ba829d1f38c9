// Package email delivers transactional email through an external provider.
package email

import (
	"context"
	"time"
)

// SendRequest is one outgoing email.
type SendRequest struct {
	To      []string
	From    string // overrides the sender default when set
	Subject string
	HTML    string
	ReplyTo string
}

// SendResult is the provider's acknowledgement.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender sends email.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// FormatFrom builds a "Name <address>" sender, or the bare address when name is empty.
func FormatFrom(name, address string) string {
	if name == "" {
		return address
	}
	return name + " <" + address + ">"
}
