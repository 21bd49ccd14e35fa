package notify

import (
	"context"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/milehighpros/lead-intake/pkg/logging"
)

const sendGridSendPath = "/v3/mail/send"

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	// BaseURL replaces https://api.sendgrid.com, e.g. for a local mock.
	BaseURL string
}

// SendGridSender delivers through the SendGrid v3 mail API.
type SendGridSender struct {
	apiKey  string
	baseURL string
	from    *mail.Email
	logger  *logging.Logger
}

// NewSendGridSender returns nil when the API key or sender address is
// missing, which disables notifications.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	apiKey := strings.TrimSpace(cfg.APIKey)
	fromEmail := strings.TrimSpace(cfg.FromEmail)
	if apiKey == "" || fromEmail == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	fromName := strings.TrimSpace(cfg.FromName)
	if fromName == "" {
		fromName = defaultFromName
	}
	return &SendGridSender{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		from:    mail.NewEmail(fromName, fromEmail),
		logger:  logger,
	}
}

// client is built per send: sendgrid.Client keeps the request body on the
// struct, so sharing one between the two concurrent sends would race.
func (s *SendGridSender) client() *sendgrid.Client {
	if s.baseURL == "" {
		return sendgrid.NewSendClient(s.apiKey)
	}
	req := sendgrid.GetRequest(s.apiKey, sendGridSendPath, s.baseURL)
	req.Method = "POST"
	return &sendgrid.Client{Request: req}
}

func (s *SendGridSender) message(msg EmailMessage) *mail.SGMailV3 {
	m := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail(msg.ToName, msg.To), msg.Body, msg.htmlBody())
	if msg.ReplyTo != "" {
		m.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}
	return m
}

// Send posts msg to SendGrid. Any status of 400 or above is an error.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil {
		return &ProviderError{Provider: "sendgrid", Err: errNotConfigured}
	}

	resp, err := s.client().SendWithContext(ctx, s.message(msg))
	if err != nil {
		return &ProviderError{Provider: "sendgrid", Err: err}
	}
	if resp.StatusCode >= 400 {
		s.logger.Debug("sendgrid rejected message", "status", resp.StatusCode, "body", resp.Body)
		return &ProviderError{Provider: "sendgrid", Status: resp.StatusCode}
	}
	s.logger.Debug("sendgrid accepted message", "status", resp.StatusCode, "to", msg.To)
	return nil
}

var _ EmailSender = (*SendGridSender)(nil)
