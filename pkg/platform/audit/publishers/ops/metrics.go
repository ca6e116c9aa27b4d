package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what the ops publisher kept and what it shed. Because
// this tier drops events by design, the counters are the only record of
// how lossy it currently is.
type Metrics struct {
	Tracked               prometheus.Counter
	Sampled               prometheus.Counter
	CircuitBreakerDropped prometheus.Counter
	PersistFailures       prometheus.Counter
	CircuitBreakerState   prometheus.Gauge
}

// NewMetrics registers the ops publisher metrics on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		Tracked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idswyft_audit_ops_tracked_total",
			Help: "Operational audit events persisted",
		}),
		Sampled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idswyft_audit_ops_sampled_total",
			Help: "Operational audit events shed by the sampler",
		}),
		CircuitBreakerDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idswyft_audit_ops_circuit_breaker_dropped_total",
			Help: "Operational audit events shed while the breaker was open",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idswyft_audit_ops_persist_failures_total",
			Help: "Failed writes of operational audit events",
		}),
		CircuitBreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "idswyft_audit_ops_circuit_breaker_state",
			Help: "Breaker state, 0 closed and 1 open",
		}),
	}
}

func (m *Metrics) IncTracked() { m.Tracked.Inc() }

func (m *Metrics) IncSampled() { m.Sampled.Inc() }

func (m *Metrics) IncCircuitBreakerDropped() { m.CircuitBreakerDropped.Inc() }

func (m *Metrics) IncPersistFailures() { m.PersistFailures.Inc() }

func (m *Metrics) SetCircuitBreakerState(open bool) {
	var v float64
	if open {
		v = 1
	}
	m.CircuitBreakerState.Set(v)
}
