package bootstrap

import (
	appconfig "github.com/milehighpros/lead-intake/internal/config"
	"github.com/milehighpros/lead-intake/internal/notify"
	"github.com/milehighpros/lead-intake/pkg/logging"
)

// BuildEmailSender selects the provider named by EMAIL_PROVIDER. It returns
// nil when the chosen provider lacks credentials, which leaves lead
// notifications disabled. sesClient is only consulted for the ses provider.
func BuildEmailSender(cfg *appconfig.Config, sesClient notify.SESAPI, logger *logging.Logger) notify.EmailSender {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.EmailProvider {
	case "stub":
		logger.Info("email provider: stub")
		return notify.NewStubEmailSender(logger)
	case "ses":
		if s := notify.NewSESSender(sesClient, notify.SESConfig{
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			logger.Info("email provider: ses", "region", cfg.AWSRegion)
			return s
		}
	case "smtp":
		if s := notify.NewSMTPSender(notify.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			logger.Info("email provider: smtp", "host", cfg.SMTPHost)
			return s
		}
	case "sendgrid", "":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
			BaseURL:   cfg.SendGridBaseURL,
		}, logger); s != nil {
			logger.Info("email provider: sendgrid")
			return s
		}
	default:
		logger.Warn("unknown EMAIL_PROVIDER; notifications disabled", "provider", cfg.EmailProvider)
		return nil
	}

	logger.Warn("email provider not configured; notifications disabled", "provider", cfg.EmailProvider)
	return nil
}
