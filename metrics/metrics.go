// Package metrics exposes Prometheus collectors for the correlation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CorrelationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_correlation_runs_total",
			Help: "Total number of correlation runs",
		},
		[]string{"status"},
	)

	IncidentsProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_incidents_produced_total",
			Help: "Total number of correlated incidents produced",
		},
		[]string{"severity"},
	)

	IncidentsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "argus_incidents_saved_total",
			Help: "Total number of incidents persisted",
		},
	)

	RulesEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "argus_rules_evaluated_total",
			Help: "Total number of rule evaluations",
		},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "argus_correlation_run_duration_seconds",
			Help:    "Time taken for one correlation run",
			Buckets: prometheus.DefBuckets,
		},
	)

	LoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "argus_load_duration_seconds",
			Help:    "Time taken to load each telemetry source",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	ThreatIntelLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_threat_intel_lookups_total",
			Help: "Total number of threat intelligence lookups",
		},
		[]string{"result"},
	)

	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "argus_notification_failures_total",
			Help: "Total number of notification delivery failures",
		},
	)

	NarrativeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "argus_narrative_failures_total",
			Help: "Total number of narrative generation failures",
		},
	)
)
