package trap

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts the pipeline stages. A nil *Metrics is a no-op so tests
// and the check subcommand can run without a registry.
type Metrics struct {
	received      prometheus.Counter
	decoded       *prometheus.CounterVec
	dropped       prometheus.Counter
	published     prometheus.Counter
	publishFailed prometheus.Counter
}

// NewMetrics registers the trap pipeline metric family on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oltfleet_traps_received_total",
			Help: "Trap datagrams received.",
		}),
		decoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oltfleet_traps_decoded_total",
			Help: "Traps decoded into events, by event type.",
		}, []string{"event_type"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oltfleet_traps_dropped_total",
			Help: "Traps dropped as unrecognized or malformed.",
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oltfleet_trap_events_published_total",
			Help: "Event publications, one per routing key.",
		}),
		publishFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oltfleet_trap_events_publish_failed_total",
			Help: "Event publications that failed after retries.",
		}),
	}
	reg.MustRegister(m.received, m.decoded, m.dropped, m.published, m.publishFailed)
	return m
}

func (m *Metrics) incReceived() {
	if m != nil {
		m.received.Inc()
	}
}

func (m *Metrics) incDecoded(eventType string) {
	if m != nil {
		m.decoded.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *Metrics) incPublished() {
	if m != nil {
		m.published.Inc()
	}
}

func (m *Metrics) incPublishFailed() {
	if m != nil {
		m.publishFailed.Inc()
	}
}
