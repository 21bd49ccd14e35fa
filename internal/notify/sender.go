package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/milehighpros/lead-intake/pkg/logging"
)

const defaultFromName = "Denver Home Pros"

var errNotConfigured = errors.New("sender not configured")

// EmailSender delivers one message. Providers are picked at startup by
// EMAIL_PROVIDER.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a provider-neutral email.
type EmailMessage struct {
	To      string
	ToName  string
	ReplyTo string
	Subject string
	Body    string // plain text
	HTML    string // derived from Body when empty
}

func (m EmailMessage) htmlBody() string {
	if m.HTML != "" {
		return m.HTML
	}
	return plainToHTML(m.Body)
}

// ProviderError reports a rejected send.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("notify: %s send failed: %v", e.Provider, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("notify: %s returned status %d", e.Provider, e.Status)
	default:
		return fmt.Sprintf("notify: %s send failed", e.Provider)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

func formatAddress(name, addr string) string {
	return (&mail.Address{Name: name, Address: addr}).String()
}

// StubEmailSender logs instead of sending. Used for local runs.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("email not sent (stub provider)", "to", msg.To, "subject", msg.Subject, "reply_to", msg.ReplyTo)
	return nil
}

var _ EmailSender = (*StubEmailSender)(nil)
