package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the eligibility read path.
type Metrics struct {
	// Eligibility checks by outcome
	Checks *prometheus.CounterVec
}

// New creates a Metrics instance with all eligibility metrics registered.
func New() *Metrics {
	return &Metrics{
		Checks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "keygate_eligibility_checks_total",
			Help: "Total eligibility checks by outcome",
		}, []string{"eligible"}),
	}
}

// IncrementCheck records one eligibility check outcome.
func (m *Metrics) IncrementCheck(eligible bool) {
	if m != nil {
		label := "false"
		if eligible {
			label = "true"
		}
		m.Checks.WithLabelValues(label).Inc()
	}
}
