// Package metrics provides Prometheus metrics for BMI calculations and
// sessions.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"bmicalc/internal/domain"
)

// Calculation outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeInvalidInput = "invalid_input"
	OutcomeFutureDate   = "future_date"
	OutcomeError        = "error"
)

// BMIMetrics holds the calculation and session metrics. A nil *BMIMetrics
// records nothing.
type BMIMetrics struct {
	CalculationsTotal *prometheus.CounterVec // by outcome
	CategoryTotal     *prometheus.CounterVec // successful calculations by category
	SessionsActive    prometheus.Gauge
	BMIValue          prometheus.Histogram
}

// NewBMIMetrics creates the metrics and registers them with registry.
func NewBMIMetrics(registry prometheus.Registerer) (*BMIMetrics, error) {
	m := &BMIMetrics{
		CalculationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bmi_calculations_total",
				Help: "Total number of BMI calculations by outcome",
			},
			[]string{"outcome"},
		),
		CategoryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bmi_category_total",
				Help: "Total number of recorded BMI values by category",
			},
			[]string{"category"},
		),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bmi_sessions_active",
			Help: "Number of sessions currently holding a history",
		}),
		BMIValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bmi_value",
			Help:    "Distribution of computed BMI values",
			Buckets: []float64{15, 18.5, 21, 24.9, 27, 29.9, 35, 40},
		}),
	}

	for _, c := range []prometheus.Collector{m.CalculationsTotal, m.CategoryTotal, m.SessionsActive, m.BMIValue} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register bmi metrics: %w", err)
		}
	}
	return m, nil
}

// ObserveRecord counts a successful calculation.
func (m *BMIMetrics) ObserveRecord(rec domain.Record) {
	if m == nil {
		return
	}
	m.CalculationsTotal.WithLabelValues(OutcomeOK).Inc()
	m.CategoryTotal.WithLabelValues(string(rec.Category)).Inc()
	m.BMIValue.Observe(rec.BMI)
}

// ObserveFailure counts a rejected or failed calculation.
func (m *BMIMetrics) ObserveFailure(outcome string) {
	if m == nil {
		return
	}
	m.CalculationsTotal.WithLabelValues(outcome).Inc()
}

// SetSessionsActive reports the number of live sessions.
func (m *BMIMetrics) SetSessionsActive(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}
