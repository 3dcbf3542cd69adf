package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the hook surface.
type Metrics struct {
	// Hook invocations by hook name and outcome
	HookInvocations *prometheus.CounterVec

	// Credential grants by result (granted, noop, failed)
	Grants *prometheus.CounterVec

	// Hook handling latency by hook name
	HookLatency *prometheus.HistogramVec
}

// New creates a Metrics instance with all hook metrics registered.
func New() *Metrics {
	return &Metrics{
		HookInvocations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "keygate_hook_invocations_total",
			Help: "Total hook invocations by hook and outcome",
		}, []string{"hook", "outcome"}), // hook: "quote", "purchase", "transfer"

		Grants: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "keygate_credential_grants_total",
			Help: "Total credential grant attempts by result",
		}, []string{"result"}), // result: "granted", "noop", "failed"

		HookLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "keygate_hook_duration_seconds",
			Help:    "Duration of hook handling by hook",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"hook"}),
	}
}

// IncrementInvocation records one hook invocation outcome.
func (m *Metrics) IncrementInvocation(hook, outcome string) {
	if m != nil {
		m.HookInvocations.WithLabelValues(hook, outcome).Inc()
	}
}

// IncrementGrant records one credential grant attempt result.
func (m *Metrics) IncrementGrant(result string) {
	if m != nil {
		m.Grants.WithLabelValues(result).Inc()
	}
}

// ObserveHookLatency records how long a hook took to handle.
func (m *Metrics) ObserveHookLatency(hook string, d time.Duration) {
	if m != nil {
		m.HookLatency.WithLabelValues(hook).Observe(d.Seconds())
	}
}
