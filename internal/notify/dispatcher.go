package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/milehighpros/lead-intake/internal/leads"
	"github.com/milehighpros/lead-intake/internal/observability/metrics"
	"github.com/milehighpros/lead-intake/pkg/logging"
)

var notifyTracer = otel.Tracer("denverpros.internal.notify")

const (
	defaultSendTimeout = 5 * time.Second
	defaultSiteName    = "Denver Home Pros"

	kindOperations   = "operations"
	kindConfirmation = "confirmation"
)

// DispatcherConfig wires the lead email dispatcher.
type DispatcherConfig struct {
	// Sender is nil when the provider credential or sender address is
	// missing; the dispatcher then skips sending.
	Sender EmailSender
	// OperationsEmail receives the internal notification.
	OperationsEmail string
	SiteName        string
	// SendTimeout bounds each email independently. Defaults to 5s.
	SendTimeout time.Duration
	Metrics     *metrics.LeadMetrics
	Logger      *logging.Logger
}

// LeadDispatcher sends the operations alert and the submitter confirmation
// for a stored lead. Failures are logged and never returned.
type LeadDispatcher struct {
	sender          EmailSender
	operationsEmail string
	siteName        string
	timeout         time.Duration
	metrics         *metrics.LeadMetrics
	logger          *logging.Logger
}

// NewLeadDispatcher creates a dispatcher.
func NewLeadDispatcher(cfg DispatcherConfig) *LeadDispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	siteName := strings.TrimSpace(cfg.SiteName)
	if siteName == "" {
		siteName = defaultSiteName
	}
	return &LeadDispatcher{
		sender:          cfg.Sender,
		operationsEmail: strings.TrimSpace(cfg.OperationsEmail),
		siteName:        siteName,
		timeout:         timeout,
		metrics:         cfg.Metrics,
		logger:          logger,
	}
}

// Notify sends both emails concurrently and waits for them. Each send has
// its own timeout and failure handling, so one failing cannot stop the
// other.
func (d *LeadDispatcher) Notify(ctx context.Context, lead *leads.Lead) {
	if lead == nil {
		return
	}
	if d.sender == nil || d.operationsEmail == "" {
		d.logger.Warn("lead email not configured, skipping notifications",
			"lead_id", lead.ID,
			"sender_configured", d.sender != nil,
			"operations_email_configured", d.operationsEmail != "",
		)
		d.metrics.ObserveNotification(kindOperations, metrics.NotificationSkipped)
		d.metrics.ObserveNotification(kindConfirmation, metrics.NotificationSkipped)
		return
	}

	ctx, span := notifyTracer.Start(ctx, "notify.lead")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", lead.ID))

	messages := map[string]EmailMessage{
		kindOperations:   operationsMessage(lead, d.operationsEmail, d.siteName),
		kindConfirmation: confirmationMessage(lead, d.siteName, d.operationsEmail),
	}

	var wg sync.WaitGroup
	for kind, msg := range messages {
		wg.Add(1)
		go func(kind string, msg EmailMessage) {
			defer wg.Done()
			d.send(ctx, lead.ID, kind, msg)
		}(kind, msg)
	}
	wg.Wait()
}

func (d *LeadDispatcher) send(ctx context.Context, leadID, kind string, msg EmailMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("lead email panicked", "panic", rec, "kind", kind, "lead_id", leadID)
			d.metrics.ObserveNotification(kind, metrics.NotificationFailed)
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.sender.Send(sendCtx, msg); err != nil {
		d.logger.Error("failed to send lead email", "error", err, "kind", kind, "lead_id", leadID)
		d.metrics.ObserveNotification(kind, metrics.NotificationFailed)
		return
	}
	d.logger.Info("lead email sent", "kind", kind, "lead_id", leadID)
	d.metrics.ObserveNotification(kind, metrics.NotificationSent)
}

var _ leads.Notifier = (*LeadDispatcher)(nil)
