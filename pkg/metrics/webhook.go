package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics counts reconciled webhook events and batch latency.
type WebhookMetrics struct {
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook events by route, kind and outcome.",
	}, []string{"route", "kind", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_batch_duration_seconds",
		Help:    "Time spent reconciling one webhook delivery.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	reg.MustRegister(events, duration)
	return &WebhookMetrics{events: events, duration: duration}
}

// ObserveEvent counts one event outcome.
func (m *WebhookMetrics) ObserveEvent(route, kind, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(route), normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// ObserveBatch records how long a webhook delivery took.
func (m *WebhookMetrics) ObserveBatch(route string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(route)).Observe(d.Seconds())
}
