// Package metrics provides Prometheus metrics for dualfs operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dualfs_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dualfs_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Dispatched operation metrics
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dualfs_operations_total",
			Help: "Total number of dispatched operations by outcome",
		},
		[]string{"backend", "operation", "mode", "outcome"}, // outcome: "ok" or an error kind
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dualfs_operation_duration_seconds",
			Help:    "Operation duration in seconds, from dispatch to result",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation", "mode"},
	)

	// Callback-mode operations dispatched but not yet completed
	PendingCallbacks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dualfs_pending_callbacks",
			Help: "Number of callback-mode operations awaiting completion",
		},
		[]string{"backend"},
	)

	// Continuations invoked more than once by a backend
	ContinuationViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dualfs_continuation_violations_total",
			Help: "Total number of dropped duplicate continuation calls",
		},
		[]string{"backend", "operation"},
	)

	// Script steps whose expectation did not hold
	ScriptStepFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dualfs_script_step_failures_total",
			Help: "Total number of failed script steps",
		},
		[]string{"operation"},
	)
)

// Outcome label values
const (
	OutcomeOK = "ok"
)
