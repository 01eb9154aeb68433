// Package notify renders payment emails and delivers them, either inline
// over SMTP or through the AMQP queue drained by the notifier worker.
package notify

import (
	"context"
	"fmt"
	"strings"

	"payminder/internal/core"
)

// Message is one rendered email.
type Message struct {
	Recipient string
	Subject   string
	Text      string
	HTML      string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// ValidateRecipient rejects addresses without an "@".
func ValidateRecipient(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" || !strings.Contains(addr, "@") {
		return fmt.Errorf("%w: %q", core.ErrInvalidRecipient, addr)
	}
	return nil
}
