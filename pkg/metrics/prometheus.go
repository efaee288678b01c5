package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

const namespace = "signalforge"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signals        *prometheus.CounterVec
	evalFailures   *prometheus.CounterVec
	validationDrop *prometheus.CounterVec
	configLookups  *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder registered with reg. A nil reg
// registers with the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_total",
				Help:      "Signals emitted by strategy and action",
			},
			[]string{"strategy", "action"},
		),
		evalFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluator_failures_total",
				Help:      "Strategy evaluations that failed or panicked",
			},
			[]string{"strategy"},
		),
		validationDrop: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_dropped_total",
				Help:      "Assembled signals rejected by validation",
			},
			[]string{"strategy"},
		),
		configLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_lookups_total",
				Help:      "Configuration resolutions by source tier and cache outcome",
			},
			[]string{"source", "cache"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal records an emitted signal.
func (r *Recorder) RecordSignal(strategyID string, action models.Action) {
	r.signals.WithLabelValues(strategyID, string(action)).Inc()
}

// RecordEvaluatorFailure records a failed or panicking evaluation.
func (r *Recorder) RecordEvaluatorFailure(strategyID string) {
	r.evalFailures.WithLabelValues(strategyID).Inc()
}

// RecordValidationDrop records a signal rejected by the assembler.
func (r *Recorder) RecordValidationDrop(strategyID string) {
	r.validationDrop.WithLabelValues(strategyID).Inc()
}

// RecordConfigLookup records one configuration resolution.
func (r *Recorder) RecordConfigLookup(source models.ConfigSource, cacheHit bool) {
	outcome := "miss"
	if cacheHit {
		outcome = "hit"
	}
	r.configLookups.WithLabelValues(string(source), outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

var _ domrepo.Metrics = (*Recorder)(nil)
