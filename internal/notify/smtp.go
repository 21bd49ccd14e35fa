package notify

import (
	"context"
	"errors"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/milehighpros/lead-intake/pkg/logging"
)

// maxInflightSMTP caps sends still talking to the relay, including ones
// whose caller already gave up. A stalled relay can hold at most this many
// goroutines; further sends fail until one finishes.
const maxInflightSMTP = 8

var errRelayBusy = errors.New("smtp relay busy: too many sends in flight")

// mailDialer is satisfied by *gomail.Dialer.
type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPConfig holds configuration for plain SMTP delivery.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// SMTPSender sends emails through an SMTP relay.
type SMTPSender struct {
	dialer    mailDialer
	inflight  chan struct{}
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// NewSMTPSender returns nil when the host or sender address is missing.
func NewSMTPSender(cfg SMTPConfig, logger *logging.Logger) *SMTPSender {
	if strings.TrimSpace(cfg.Host) == "" || strings.TrimSpace(cfg.FromEmail) == "" {
		return nil
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return newSMTPSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg, logger)
}

func newSMTPSender(d mailDialer, cfg SMTPConfig, logger *logging.Logger) *SMTPSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SMTPSender{
		dialer:    d,
		inflight:  make(chan struct{}, maxInflightSMTP),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Send delivers msg. gomail has no context support and no deadline on the
// SMTP conversation, so the exchange runs in a goroutine and Send returns
// early when ctx is done. The goroutine keeps its inflight slot until the
// relay answers or drops the connection.
func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.dialer == nil {
		return &ProviderError{Provider: "smtp", Err: errNotConfigured}
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.fromEmail, s.fromName)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	m.AddAlternative("text/html", msg.htmlBody())

	select {
	case s.inflight <- struct{}{}:
	default:
		s.logger.Warn("smtp send rejected, relay saturated", "in_flight", cap(s.inflight), "to", msg.To)
		return &ProviderError{Provider: "smtp", Err: errRelayBusy}
	}

	errCh := make(chan error, 1)
	go func() {
		defer func() { <-s.inflight }()
		errCh <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return &ProviderError{Provider: "smtp", Err: err}
		}
	case <-ctx.Done():
		return &ProviderError{Provider: "smtp", Err: ctx.Err()}
	}

	s.logger.Debug("smtp relay accepted message", "to", msg.To)
	return nil
}

var _ EmailSender = (*SMTPSender)(nil)
