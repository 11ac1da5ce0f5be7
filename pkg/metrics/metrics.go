package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts permission evaluations and their outcome (allowed|denied|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grantstore_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"permission", "result"},
	)

	// AuthorizationOperations counts store operations by name and outcome (success|invalid|not_found|conflict|error).
	AuthorizationOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grantstore_authorization_operations_total",
			Help: "Total number of authorization store operations",
		},
		[]string{"operation", "result"},
	)

	// Authorizations tracks the number of stored grants; seeded at start-up and adjusted on add/delete.
	Authorizations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "grantstore_authorizations",
			Help: "Number of stored authorization grants",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grantstore_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
