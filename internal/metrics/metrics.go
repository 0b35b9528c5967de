// Package metrics holds the prometheus collectors of the calculator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Failure reasons.
const (
	ReasonInvalidInput = "invalid_input"
	ReasonDiverged     = "diverged"
	ReasonInternal     = "internal"
)

// Weight reload sources.
const (
	SourceLoad     = "load"
	SourceCreate   = "create"
	SourceWatch    = "watch"
	SourceUpdate   = "update"
	SourceFallback = "fallback"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	Calculations        *prometheus.CounterVec
	CalculationFailures *prometheus.CounterVec
	EffectiveRate       prometheus.Histogram
	WeightReloads       *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// to expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Calculations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pawn_calculations_total",
				Help: "Total number of completed loan calculations",
			},
			[]string{"collateral", "mode"},
		),
		CalculationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pawn_calculation_failures_total",
				Help: "Total number of rejected or failed loan calculations",
			},
			[]string{"reason"},
		),
		EffectiveRate: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pawn_effective_rate_percent",
				Help:    "Composed effective annual rate in percent",
				Buckets: []float64{1, 2, 2.5, 3, 3.5, 4, 5, 6, 8, 10},
			},
		),
		WeightReloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pawn_weight_reloads_total",
				Help: "Total number of weight table snapshots installed",
			},
			[]string{"source"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pawn_http_requests_total",
				Help: "Total number of HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}
}

// ObserveCalculation records a successful calculation.
func (m *Metrics) ObserveCalculation(collateral, mode string, ratePercent float64) {
	if m == nil {
		return
	}
	m.Calculations.WithLabelValues(collateral, mode).Inc()
	m.EffectiveRate.Observe(ratePercent)
}

// CalculationFailed records a failed calculation.
func (m *Metrics) CalculationFailed(reason string) {
	if m == nil {
		return
	}
	m.CalculationFailures.WithLabelValues(reason).Inc()
}

// WeightsReloaded records a new weight snapshot.
func (m *Metrics) WeightsReloaded(source string) {
	if m == nil {
		return
	}
	m.WeightReloads.WithLabelValues(source).Inc()
}

// RequestServed records an HTTP response.
func (m *Metrics) RequestServed(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
}
