// Package metrics holds the Prometheus collectors for the heartbeat service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "heartbeat"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)
)

// Ingestion metrics
var (
	// PingsTotal counts accepted pings by kind ("ping" or "fail").
	PingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "pings_total",
			Help:      "Total heartbeat pings accepted",
		},
		[]string{"kind"},
	)
)

// Check cycle metrics
var (
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "check",
			Name:      "cycles_total",
			Help:      "Total check cycles by result",
		},
		[]string{"result"},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "check",
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock time of one check cycle",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
		},
	)

	// OverdueMonitors is the number of non-paused overdue monitors seen by the last cycle.
	OverdueMonitors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "check",
			Name:      "overdue_monitors",
			Help:      "Overdue monitors seen by the last check cycle",
		},
	)

	ExpiredMonitorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "check",
			Name:      "expired_monitors_total",
			Help:      "Monitors removed after the retention window",
		},
	)
)

// Notification metrics
var (
	// AlertsSentTotal counts delivered notifications by kind (first, repeat, recovery).
	AlertsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Notifications delivered by kind",
		},
		[]string{"kind"},
	)

	AlertsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "failed_total",
			Help:      "Notifications that exhausted every delivery attempt, by kind",
		},
		[]string{"kind"},
	)
)
