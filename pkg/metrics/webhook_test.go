package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWebhookMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)

	m.ObserveEvent("pix", "instant", "applied")
	m.ObserveEvent("pix", "instant", "applied")
	m.ObserveEvent("pix-automatic", "charge", "")
	m.ObserveBatch("pix", 40*time.Millisecond)

	if got := testutil.ToFloat64(m.events.WithLabelValues("pix", "instant", "applied")); got != 2 {
		t.Fatalf("expected 2 applied events, got %f", got)
	}
	if got := testutil.ToFloat64(m.events.WithLabelValues("pix-automatic", "charge", "unknown")); got != 1 {
		t.Fatalf("expected blank outcome to be normalized, got %f", got)
	}
	if count := testutil.CollectAndCount(reg, "webhook_batch_duration_seconds"); count != 1 {
		t.Fatalf("expected one histogram series, got %d", count)
	}
}

func TestWebhookMetricsNilSafe(t *testing.T) {
	var m *WebhookMetrics
	m.ObserveEvent("pix", "instant", "applied")
	m.ObserveBatch("pix", time.Second)

	unregistered := NewWebhookMetrics(nil)
	unregistered.ObserveEvent("pix", "instant", "applied")
}
