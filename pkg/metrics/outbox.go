package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks publisher and consumer outcomes per event type.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	consumed  *prometheus.CounterVec
}

// NewOutboxMetrics registers the outbox metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_published_total",
		Help:      "Outbox events published to Pub/Sub.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_publish_failures_total",
		Help:      "Outbox publish failures; terminal=true rows moved to the DLQ.",
	}, []string{"event_type", "terminal"})
	consumed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_consumed_total",
		Help:      "Events handled by consumers, by outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(published, failed, consumed)
	return &OutboxMetrics{published: published, failed: failed, consumed: consumed}
}

// IncPublished counts a published event.
func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed counts a failed publish attempt.
func (m *OutboxMetrics) IncFailed(eventType string, terminal bool) {
	if m == nil || m.failed == nil {
		return
	}
	flag := "false"
	if terminal {
		flag = "true"
	}
	m.failed.WithLabelValues(normalizeLabel(eventType), flag).Inc()
}

// IncConsumed counts a consumer outcome such as "delivered", "duplicate" or "failed".
func (m *OutboxMetrics) IncConsumed(eventType, outcome string) {
	if m == nil || m.consumed == nil {
		return
	}
	m.consumed.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
