package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milehighpros/lead-intake/internal/leads"
	"github.com/milehighpros/lead-intake/internal/observability/metrics"
	"github.com/milehighpros/lead-intake/pkg/logging"
)

type recordingSender struct {
	mu     sync.Mutex
	sent   []EmailMessage
	failTo map[string]error
	block  bool
}

func (s *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failTo[msg.To]; err != nil {
		return err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) byRecipient(to string) (EmailMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.sent {
		if m.To == to {
			return m, true
		}
	}
	return EmailMessage{}, false
}

func testLead() *leads.Lead {
	return &leads.Lead{
		ID: "9b2f6c1e-1111-4a2b-9c3d-123456789abc",
		Submission: leads.Submission{
			ProjectType:      "Roofing",
			Description:      "Hail damage on the north side of the roof, need a full inspection.",
			Timeline:         "Within 1 month",
			BudgetRange:      "$10k-$20k",
			ZipCode:          "80202",
			FullName:         "Pat Homeowner",
			Email:            "pat@example.com",
			Phone:            "303-555-0100",
			PreferredContact: "phone",
			SourcePage:       "/roofing/denver",
		},
		UserAgent: "Mozilla/5.0",
		IP:        "203.0.113.7",
		Status:    leads.StatusNew,
		CreatedAt: time.Date(2026, 3, 1, 16, 30, 0, 0, time.UTC),
	}
}

const opsEmail = "ops@denverhomepros.com"

func TestLeadDispatcher_SendsBothEmails(t *testing.T) {
	sender := &recordingSender{}
	d := NewLeadDispatcher(DispatcherConfig{Sender: sender, OperationsEmail: opsEmail, Logger: logging.New("error")})

	d.Notify(context.Background(), testLead())

	internal, ok := sender.byRecipient(opsEmail)
	require.True(t, ok, "operations email not sent")
	assert.Contains(t, internal.Subject, "Roofing")
	assert.Equal(t, "pat@example.com", internal.ReplyTo)
	for _, want := range []string{"203.0.113.7", "Mozilla/5.0", "/roofing/denver", "9b2f6c1e-1111-4a2b-9c3d-123456789abc", "Hail damage", "303-555-0100"} {
		assert.Contains(t, internal.Body, want)
	}

	confirmation, ok := sender.byRecipient("pat@example.com")
	require.True(t, ok, "confirmation email not sent")
	assert.Equal(t, "Pat Homeowner", confirmation.ToName)
	assert.True(t, strings.HasPrefix(confirmation.Body, "Hi Pat,"))
	assert.Contains(t, confirmation.Body, "24 hours")
	assert.NotContains(t, confirmation.Body, "203.0.113.7")
}

func TestLeadDispatcher_OperationsFailureDoesNotBlockConfirmation(t *testing.T) {
	sender := &recordingSender{failTo: map[string]error{opsEmail: errors.New("provider down")}}
	reg := prometheus.NewRegistry()
	m := metrics.NewLeadMetrics(reg)
	d := NewLeadDispatcher(DispatcherConfig{Sender: sender, OperationsEmail: opsEmail, Metrics: m, Logger: logging.New("error")})

	d.Notify(context.Background(), testLead())

	_, ok := sender.byRecipient("pat@example.com")
	assert.True(t, ok, "confirmation must still be attempted")
	expected := `
# HELP denverpros_leads_notifications_total Lead emails by kind and status
# TYPE denverpros_leads_notifications_total counter
denverpros_leads_notifications_total{kind="confirmation",status="sent"} 1
denverpros_leads_notifications_total{kind="operations",status="failed"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "denverpros_leads_notifications_total"))
}

func TestLeadDispatcher_BothFailuresAreSwallowed(t *testing.T) {
	sender := &recordingSender{failTo: map[string]error{
		opsEmail:          errors.New("unreachable"),
		"pat@example.com": errors.New("unreachable"),
	}}
	d := NewLeadDispatcher(DispatcherConfig{Sender: sender, OperationsEmail: opsEmail, Logger: logging.New("error")})

	assert.NotPanics(t, func() { d.Notify(context.Background(), testLead()) })
	assert.Empty(t, sender.sent)
}

func TestLeadDispatcher_NotConfiguredIsNoop(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewLeadMetrics(reg)

	d := NewLeadDispatcher(DispatcherConfig{Sender: nil, OperationsEmail: opsEmail, Metrics: m, Logger: logging.New("error")})
	d.Notify(context.Background(), testLead())

	sender := &recordingSender{}
	d = NewLeadDispatcher(DispatcherConfig{Sender: sender, OperationsEmail: "", Metrics: m, Logger: logging.New("error")})
	d.Notify(context.Background(), testLead())

	assert.Empty(t, sender.sent)
	assert.Equal(t, 2, testutil.CollectAndCount(reg, "denverpros_leads_notifications_total"))
}

func TestLeadDispatcher_EachSendIsBounded(t *testing.T) {
	sender := &recordingSender{block: true}
	d := NewLeadDispatcher(DispatcherConfig{
		Sender:          sender,
		OperationsEmail: opsEmail,
		SendTimeout:     20 * time.Millisecond,
		Logger:          logging.New("error"),
	})

	done := make(chan struct{})
	go func() {
		d.Notify(context.Background(), testLead())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify did not return after send timeouts")
	}
}

func TestLeadDispatcher_NilLead(t *testing.T) {
	sender := &recordingSender{}
	d := NewLeadDispatcher(DispatcherConfig{Sender: sender, OperationsEmail: opsEmail})
	d.Notify(context.Background(), nil)
	assert.Empty(t, sender.sent)
}

func TestConfirmationMessage_OmitsEmptyBudget(t *testing.T) {
	lead := testLead()
	lead.BudgetRange = ""
	msg := confirmationMessage(lead, "Denver Home Pros", opsEmail)
	assert.NotContains(t, msg.Body, "Budget:")
	assert.Equal(t, opsEmail, msg.ReplyTo)
}

func TestOperationsMessage_DashesForMissingOptionalFields(t *testing.T) {
	lead := testLead()
	lead.Phone = ""
	lead.SourcePage = ""
	msg := operationsMessage(lead, opsEmail, "Denver Home Pros")
	assert.Contains(t, msg.Body, "Phone: -")
	assert.Contains(t, msg.Body, "Source page: -")
}
