// Package metrics provides Prometheus metrics for the queue manager worker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors of the worker. A nil *Metrics
// is a valid no-op for callers that check before recording.
type Metrics struct {
	registry *prometheus.Registry

	// Lifecycle metrics.
	transitionsTotal  *prometheus.CounterVec
	transitionErrors  *prometheus.CounterVec
	tickDuration      prometheus.Histogram
	tickFailures      prometheus.Counter
	lastTickUnix      prometheus.Gauge

	// Feeder metrics.
	autoCreatedTotal prometheus.Counter
	autoSkippedTotal prometheus.Counter

	// Scheduler job metrics.
	jobRunsTotal    *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	jobLastRunUnix  *prometheus.GaugeVec
}

// New creates a Metrics instance backed by its own registry, free of the
// default Go collectors.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "queue_manager"
	}

	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Metrics{
		registry: registry,

		transitionsTotal: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Total number of successful event phase transitions",
		}, []string{"transition"}),

		transitionErrors: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transition_errors_total",
			Help:      "Total number of failed event phase transitions",
		}, []string{"transition"}),

		tickDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Duration of a full lifecycle scan cycle",
			Buckets:   prometheus.DefBuckets,
		}),

		tickFailures: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_event_failures_total",
			Help:      "Total number of events that failed processing within a cycle",
		}),

		lastTickUnix: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_tick_unix",
			Help:      "Unix timestamp of the last completed scan cycle",
		}),

		autoCreatedTotal: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auto_created_events_total",
			Help:      "Total number of events created by the schedule feeder",
		}),

		autoSkippedTotal: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auto_skipped_entries_total",
			Help:      "Total number of schedule entries skipped by the feeder",
		}),

		jobRunsTotal: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Total number of scheduler job executions by job and outcome",
		}, []string{"job", "outcome"}),

		jobDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduler job executions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),

		jobLastRunUnix: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_last_run_unix",
			Help:      "Unix timestamp of the last run per job",
		}, []string{"job"}),
	}
}

// RecordTransition counts one phase transition attempt.
func (m *Metrics) RecordTransition(transition string, ok bool) {
	if ok {
		m.transitionsTotal.WithLabelValues(transition).Inc()
		return
	}
	m.transitionErrors.WithLabelValues(transition).Inc()
}

// ObserveTick records the duration and failure count of one scan cycle.
func (m *Metrics) ObserveTick(d time.Duration, failed int) {
	m.tickDuration.Observe(d.Seconds())
	m.tickFailures.Add(float64(failed))
	m.lastTickUnix.SetToCurrentTime()
}

// RecordAutoCreate records the outcome of one feeder run.
func (m *Metrics) RecordAutoCreate(created, skipped int) {
	m.autoCreatedTotal.Add(float64(created))
	m.autoSkippedTotal.Add(float64(skipped))
}

// RecordJobRun records one scheduler job execution.
func (m *Metrics) RecordJobRun(job string, ok bool, d time.Duration) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.jobRunsTotal.WithLabelValues(job, outcome).Inc()
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
	m.jobLastRunUnix.WithLabelValues(job).SetToCurrentTime()
}

// Registry returns the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
