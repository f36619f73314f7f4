// Package observability holds the Prometheus collectors of the service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ridepool"

var (
	PassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "matching_passes_total", Help: "Matching passes by outcome"},
		[]string{"outcome"},
	)
	PassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "matching_pass_duration_seconds",
		Help:      "Duration of a matching pass",
		Buckets:   prometheus.DefBuckets,
	})
	PoolsCreatedTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "pools_created_total", Help: "Pools created by the matcher"})
	RequestsPooledTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "requests_pooled_total", Help: "Requests placed into a pool"})
	RequestsPending     = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "requests_pending", Help: "Requests left pending by the last pass"})
	PlacementErrors     = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "placement_errors_total", Help: "Per-request placement failures"},
		[]string{"reason"},
	)
	LockDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "lock_degraded_total", Help: "Passes run without the advisory lock"},
		[]string{"reason"},
	)
	RouteSyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "route_syncs_total", Help: "Pool route syncs by outcome"},
		[]string{"outcome"},
	)
	QuotesTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "quotes_total", Help: "Fare quotes computed"})
	JobsTotal   = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "jobs_total", Help: "Background jobs by type and outcome"},
		[]string{"type", "outcome"},
	)
	IdempotencyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "idempotency_total", Help: "Idempotency-Key handling by outcome"},
		[]string{"outcome"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
