// Package metrics defines the prometheus collectors shared across the
// reseller core. Collectors are registered on the default registerer and
// exposed by the serve command's metrics listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

//nolint: gochecknoglobals
var (
	// RegistrarCallDuration times every outbound registrar call.
	RegistrarCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reseller",
		Subsystem: "registrar",
		Name:      "call_duration_seconds",
		Help:      "Duration of registrar API calls.",
		Buckets:   DefaultBuckets,
	}, []string{"registrar", "operation"})

	// RegistrarCalls counts registrar calls by outcome ("success", "error",
	// "rate_limited", "cache_hit").
	RegistrarCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reseller",
		Subsystem: "registrar",
		Name:      "calls_total",
		Help:      "Registrar API calls by outcome.",
	}, []string{"registrar", "operation", "outcome"})

	// WalletRefunds counts compensating refunds issued after failed
	// registrar calls. A growing rate here means vendors are failing after
	// we debit.
	WalletRefunds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reseller",
		Subsystem: "wallet",
		Name:      "refunds_total",
		Help:      "Compensating refunds by action.",
	}, []string{"action"})

	// ReconcileDrift counts fields repaired by the reconciliation engine.
	ReconcileDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reseller",
		Subsystem: "reconcile",
		Name:      "drift_fields_total",
		Help:      "Drifted fields detected and repaired during reconciliation.",
	}, []string{"field"})
)
