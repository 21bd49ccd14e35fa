package notify

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/milehighpros/lead-intake/pkg/logging"
)

// SESAPI is the part of the SES v2 client the sender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig holds the sender identity used with SES.
type SESConfig struct {
	FromEmail string
	FromName  string
}

// SESSender delivers through Amazon SES v2.
type SESSender struct {
	client SESAPI
	from   string
	logger *logging.Logger
}

// NewSESSender returns nil without a client or sender address.
func NewSESSender(client SESAPI, cfg SESConfig, logger *logging.Logger) *SESSender {
	fromEmail := strings.TrimSpace(cfg.FromEmail)
	if client == nil || fromEmail == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	fromName := strings.TrimSpace(cfg.FromName)
	if fromName == "" {
		fromName = defaultFromName
	}
	return &SESSender{
		client: client,
		from:   formatAddress(fromName, fromEmail),
		logger: logger,
	}
}

func utf8Content(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
}

func (s *SESSender) input(msg EmailMessage) *sesv2.SendEmailInput {
	to := msg.To
	if msg.ToName != "" {
		to = formatAddress(msg.ToName, msg.To)
	}
	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: utf8Content(msg.Subject),
				Body: &types.Body{
					Text: utf8Content(msg.Body),
					Html: utf8Content(msg.htmlBody()),
				},
			},
		},
	}
	if msg.ReplyTo != "" {
		in.ReplyToAddresses = []string{msg.ReplyTo}
	}
	return in
}

// Send submits msg to SES.
func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil {
		return &ProviderError{Provider: "ses", Err: errNotConfigured}
	}
	out, err := s.client.SendEmail(ctx, s.input(msg))
	if err != nil {
		return &ProviderError{Provider: "ses", Err: err}
	}
	s.logger.Debug("ses accepted message", "message_id", aws.ToString(out.MessageId), "to", msg.To)
	return nil
}

var _ EmailSender = (*SESSender)(nil)
