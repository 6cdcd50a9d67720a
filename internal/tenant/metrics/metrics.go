package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tenant module.
// Authentication sits on every guarded request, so its latency is tracked separately.
type Metrics struct {
	TenantCreated        prometheus.Counter
	TenantStatusChanges  *prometheus.CounterVec
	AuthFailures         prometheus.Counter
	AuthenticateDuration prometheus.Histogram
}

// New registers the tenant metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TenantCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_tenants_created_total",
			Help: "Total number of tenants created",
		}),
		TenantStatusChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_tenant_status_changes_total",
			Help: "Tenant activation state changes",
		}, []string{"status"}),
		AuthFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_tenant_auth_failures_total",
			Help: "API key lookups that did not resolve to an active tenant",
		}),
		AuthenticateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycgate_tenant_authenticate_duration_seconds",
			Help:    "Duration of API key authentication (every guarded request)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementTenantCreated() {
	if m == nil {
		return
	}
	m.TenantCreated.Inc()
}

func (m *Metrics) IncrementStatusChange(status string) {
	if m == nil {
		return
	}
	m.TenantStatusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementAuthFailure() {
	if m == nil {
		return
	}
	m.AuthFailures.Inc()
}

// ObserveAuthenticate records the duration of an Authenticate call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAuthenticate(start time.Time) {
	if m == nil {
		return
	}
	m.AuthenticateDuration.Observe(time.Since(start).Seconds())
}
