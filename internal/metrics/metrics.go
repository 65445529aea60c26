// Package metrics holds the Prometheus collectors of txguard.
//
// Collectors live on an injected Metrics value rather than package globals.
// All record methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
type Metrics struct {
	replacementsTotal       *prometheus.CounterVec
	outcomesTotal           *prometheus.CounterVec
	escalationDuration      prometheus.Histogram
	classifiedErrorsTotal   *prometheus.CounterVec
	feeOracleRequestsTotal  *prometheus.CounterVec
	redundantReadsTotal     *prometheus.CounterVec
	redundantReadAttempts   prometheus.Histogram
	transientRetriesTotal   prometheus.Counter
	accelerationPromptTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		replacementsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txguard_replacements_total",
				Help: "Replacement transactions submitted, by result",
			},
			[]string{"result"},
		),
		outcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txguard_outcomes_total",
				Help: "Terminal outcomes of escalation runs",
			},
			[]string{"outcome"},
		),
		escalationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "txguard_escalation_duration_seconds",
				Help:    "Time from hand-off to terminal outcome",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
		),
		classifiedErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txguard_classified_errors_total",
				Help: "Errors run through the taxonomy, by resulting kind",
			},
			[]string{"kind"},
		),
		feeOracleRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txguard_fee_oracle_requests_total",
				Help: "Fee oracle lookups by status",
			},
			[]string{"status"},
		),
		redundantReadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txguard_redundant_reads_total",
				Help: "Redundant read passes by result",
			},
			[]string{"result"},
		),
		redundantReadAttempts: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "txguard_redundant_read_attempts",
				Help:    "Sources tried per redundant read pass",
				Buckets: []float64{1, 2, 3, 4, 6, 8},
			},
		),
		transientRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "txguard_transient_retries_total",
				Help: "Replacement submissions retried after a transient rejection",
			},
		),
		accelerationPromptTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txguard_acceleration_prompts_total",
				Help: "Acceleration prompts by result",
			},
			[]string{"result"},
		),
	}
}

// RecordReplacement counts a replacement submission ("submitted", "transient", "nonce_used", "failed").
func (m *Metrics) RecordReplacement(result string) {
	if m == nil {
		return
	}
	m.replacementsTotal.WithLabelValues(result).Inc()
}

// RecordOutcome counts a terminal outcome and its duration.
func (m *Metrics) RecordOutcome(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(outcome).Inc()
	m.escalationDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RecordClassification(kind string) {
	if m == nil {
		return
	}
	m.classifiedErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordFeeOracleRequest(status string) {
	if m == nil {
		return
	}
	m.feeOracleRequestsTotal.WithLabelValues(status).Inc()
}

// RecordRedundantRead counts one pass over redundant sources.
func (m *Metrics) RecordRedundantRead(result string, attempts int) {
	if m == nil {
		return
	}
	m.redundantReadsTotal.WithLabelValues(result).Inc()
	m.redundantReadAttempts.Observe(float64(attempts))
}

func (m *Metrics) RecordTransientRetry() {
	if m == nil {
		return
	}
	m.transientRetriesTotal.Inc()
}

func (m *Metrics) RecordPrompt(result string) {
	if m == nil {
		return
	}
	m.accelerationPromptTotal.WithLabelValues(result).Inc()
}
