package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics counts publisher outcomes per event type and sink.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vt_outbox_published_total",
		Help: "Outbox events delivered to the sink.",
	}, []string{"event_type", "sink"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vt_outbox_failed_total",
		Help: "Outbox publish attempts that failed.",
	}, []string{"event_type", "sink"})
	reg.MustRegister(published, failed)
	return &OutboxMetrics{published: published, failed: failed}
}

func (m *OutboxMetrics) IncPublished(eventType, sink string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType), normalizeLabel(sink)).Inc()
}

func (m *OutboxMetrics) IncFailed(eventType, sink string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType), normalizeLabel(sink)).Inc()
}
