package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts permission evaluations and their outcome (allowed|denied|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modlocker_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"permission", "result"},
	)

	// EntitlementChecks counts product entitlement evaluations by outcome (granted|denied|error).
	EntitlementChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modlocker_entitlement_checks_total",
			Help: "Total number of product entitlement checks",
		},
		[]string{"result"},
	)

	// LicenseGrantsIssued counts capability tokens minted for the delivery vault.
	LicenseGrantsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modlocker_license_grants_issued_total",
			Help: "Total number of license grants issued",
		},
	)

	// SubscriptionActivations counts subscription activations by result (activated|rejected|error).
	SubscriptionActivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modlocker_subscription_activations_total",
			Help: "Total number of subscription activation attempts",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modlocker_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
