package sshpool

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports pool state for operational visibility. Gauges carry a
// pool label so per-device saturation is visible on one dashboard.
type Metrics struct {
	connections *prometheus.GaugeVec
	inUse       *prometheus.GaugeVec
	created     *prometheus.CounterVec
	reapedTotal *prometheus.CounterVec

	mu          sync.Mutex
	lastCreated map[string]uint64
}

// NewMetrics registers the pool metric family on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oltfleet_sshpool_connections",
			Help: "Pooled SSH sessions per pool.",
		}, []string{"pool"}),
		inUse: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oltfleet_sshpool_in_use",
			Help: "Pooled SSH sessions currently handed out.",
		}, []string{"pool"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oltfleet_sshpool_created_total",
			Help: "SSH sessions dialed per pool since process start.",
		}, []string{"pool"}),
		reapedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oltfleet_sshpool_reaped_total",
			Help: "Idle SSH sessions evicted per pool.",
		}, []string{"pool"}),
		lastCreated: make(map[string]uint64),
	}
	reg.MustRegister(m.connections, m.inUse, m.created, m.reapedTotal)
	return m
}

func (m *Metrics) observe(p *Pool) {
	s := p.Stats()
	m.connections.WithLabelValues(p.key).Set(float64(s.TotalConnections))
	m.inUse.WithLabelValues(p.key).Set(float64(s.InUse))

	// Counters only go up; replay the delta since the last observation.
	m.mu.Lock()
	defer m.mu.Unlock()
	if delta := s.CreatedTotal - m.lastCreated[p.key]; delta > 0 {
		m.created.WithLabelValues(p.key).Add(float64(delta))
		m.lastCreated[p.key] = s.CreatedTotal
	}
}

func (m *Metrics) reaped(pool string, count int) {
	if count > 0 {
		m.reapedTotal.WithLabelValues(pool).Add(float64(count))
	}
}
