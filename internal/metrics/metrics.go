package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "presskit"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

// Scheduled job metrics
var (
	ScheduledRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_runs_total",
			Help:      "Total number of scheduled job runs",
		},
		[]string{"job", "status"},
	)

	ScheduledRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduled_run_duration_seconds",
			Help:      "Scheduled job execution time distribution",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"job"},
	)

	ScheduledRunLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduled_run_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		},
		[]string{"job"},
	)
)

// Usage tracking metrics (aggregate totals - no tenant label to avoid cardinality)
var (
	UsageTenantsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_tenants_evaluated_total",
			Help:      "Total number of tenant usage evaluations",
		},
		[]string{"status"}, // "ok" or "failed"
	)

	UsageNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_notifications_total",
			Help:      "Total number of usage threshold notifications",
		},
		[]string{"resource", "band", "outcome"}, // outcome: "sent", "suppressed", "failed"
	)

	QuotaChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_checks_total",
			Help:      "Total number of quota enforcement checks",
		},
		[]string{"resource", "result"}, // result: "allowed", "denied"
	)

	UsageReportsExported = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_reports_exported_total",
			Help:      "Total number of usage reports written to storage",
		},
	)
)
