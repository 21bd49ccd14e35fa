package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestLeadMetricsCountsSubmissions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLeadMetrics(reg)
	m.ObserveSubmission(OutcomeAccepted)
	m.ObserveSubmission(OutcomeAccepted)
	m.ObserveSubmission(OutcomeRateLimited)

	if got := testutil.ToFloat64(m.submissionsTotal.WithLabelValues(OutcomeAccepted)); got != 2 {
		t.Fatalf("expected 2 accepted submissions, got %v", got)
	}
	if got := testutil.ToFloat64(m.submissionsTotal.WithLabelValues(OutcomeRateLimited)); got != 1 {
		t.Fatalf("expected 1 rate limited submission, got %v", got)
	}
}

func TestLeadMetricsNotificationExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLeadMetrics(reg)
	m.ObserveNotification("confirmation", NotificationFailed)

	expected := `
# HELP denverpros_leads_notifications_total Lead emails by kind and status
# TYPE denverpros_leads_notifications_total counter
denverpros_leads_notifications_total{kind="confirmation",status="failed"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "denverpros_leads_notifications_total"); err != nil {
		t.Fatalf("unexpected exposition: %v", err)
	}
}

func TestLeadMetricsStoreLatencyHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLeadMetrics(reg)
	m.ObserveStoreLatency(true, 0.2)
	m.ObserveStoreLatency(false, 1.5)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var hist *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "denverpros_leads_store_latency_seconds" {
			hist = f
		}
	}
	if hist == nil {
		t.Fatalf("store latency histogram not registered")
	}
	if len(hist.GetMetric()) != 2 {
		t.Fatalf("expected ok and error series, got %d", len(hist.GetMetric()))
	}
}

func TestLeadMetricsNilSafe(t *testing.T) {
	var m *LeadMetrics
	m.ObserveSubmission(OutcomeInvalid)
	m.ObserveNotification("operations", NotificationSent)
	m.ObserveStoreLatency(true, 0.1)
}
