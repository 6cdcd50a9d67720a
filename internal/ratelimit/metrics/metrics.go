package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions        *prometheus.CounterVec
	StoreErrors      prometheus.Counter
	DegradedChecks   prometheus.Counter
	CircuitOpenGauge prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_ratelimit_decisions_total",
			Help: "Per-tenant rate limit decisions",
		}, []string{"outcome"}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_ratelimit_store_errors_total",
			Help: "Failed checks against the shared rate limit store",
		}),
		DegradedChecks: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_ratelimit_degraded_checks_total",
			Help: "Checks answered by the in-process fallback while the shared store is unhealthy",
		}),
		CircuitOpenGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kycgate_ratelimit_circuit_open",
			Help: "1 while the shared rate limit store circuit is open",
		}),
	}
}

func (m *Metrics) IncrementDecision(allowed bool) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	m.Decisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementStoreError() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}

func (m *Metrics) IncrementDegraded() {
	if m == nil {
		return
	}
	m.DegradedChecks.Inc()
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitOpenGauge.Set(1)
		return
	}
	m.CircuitOpenGauge.Set(0)
}
