package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification session reconciler.
type Metrics struct {
	// Provider round trips by operation and outcome category
	ProviderCalls   *prometheus.CounterVec
	ProviderLatency *prometheus.HistogramVec

	// Registrations by result kind: new_customer, existing_customer
	Registrations *prometheus.CounterVec

	StatusTransitions  *prometheus.CounterVec
	IgnoredTransitions *prometheus.CounterVec
	Overrides          *prometheus.CounterVec
}

// New registers the kyc metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ProviderCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_kyc_provider_calls_total",
			Help: "Verification provider calls by operation and outcome",
		}, []string{"provider", "operation", "outcome"}),

		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kycgate_kyc_provider_call_duration_seconds",
			Help:    "Duration of verification provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"provider", "operation"}),

		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_kyc_registrations_total",
			Help: "Provider registrations by result kind",
		}, []string{"kind"}),

		StatusTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_kyc_status_transitions_total",
			Help: "Persisted verification status transitions",
		}, []string{"from", "to"}),

		IgnoredTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_kyc_ignored_transitions_total",
			Help: "Provider statuses dropped because the transition is not permitted",
		}, []string{"from", "to"}),

		Overrides: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_kyc_status_overrides_total",
			Help: "Administrative status overrides",
		}, []string{"to"}),
	}
}

// ObserveProviderCall records one provider round trip. outcome is "ok" or an error category.
func (m *Metrics) ObserveProviderCall(provider, operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderCalls.WithLabelValues(provider, operation, outcome).Inc()
	m.ProviderLatency.WithLabelValues(provider, operation).Observe(d.Seconds())
}

func (m *Metrics) IncrementRegistration(kind string) {
	if m != nil {
		m.Registrations.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncrementTransition(from, to string) {
	if m != nil {
		m.StatusTransitions.WithLabelValues(from, to).Inc()
	}
}

func (m *Metrics) IncrementIgnoredTransition(from, to string) {
	if m != nil {
		m.IgnoredTransitions.WithLabelValues(from, to).Inc()
	}
}

func (m *Metrics) IncrementOverride(to string) {
	if m != nil {
		m.Overrides.WithLabelValues(to).Inc()
	}
}
