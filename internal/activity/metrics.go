package activity

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts journaled operations for the /metrics scrape endpoint.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the operation collectors and registers them with reg.
// A nil reg registers nothing, which suits tests that build several recorders.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lyricera",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lyricera",
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Time from request to ledger receipt.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"operation"}),
	}

	if reg != nil {
		reg.MustRegister(m.operations, m.duration)
	}
	return m
}

// Observe counts e and records its duration.
func (m *Metrics) Observe(e *Entry) {
	if m == nil || e == nil {
		return
	}
	m.operations.WithLabelValues(e.Operation, e.Outcome).Inc()
	m.duration.WithLabelValues(e.Operation).Observe((time.Duration(e.DurationMS) * time.Millisecond).Seconds())
}
