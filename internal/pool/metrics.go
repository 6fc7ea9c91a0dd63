package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	outcomeOK          = "ok"
	outcomeRejected    = "rejected"
	outcomeFailed      = "failed"
	outcomeConfigError = "config_error"
	outcomeError       = "error"
)

// unknownLabel replaces a model or action label the pool does not know,
// keeping label cardinality bounded by the schema.
const unknownLabel = "unknown"

var (
	// resolveTotal counts resolve calls.
	// Labels: model, outcome (ok, config_error, error)
	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relsync",
		Name:      "resolve_total",
		Help:      "Total resolve calls by model and outcome",
	}, []string{"model", "outcome"})

	// syncTotal counts top-level and nested sync calls.
	// Labels: model, action, outcome (ok, rejected, failed, config_error)
	syncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relsync",
		Name:      "sync_total",
		Help:      "Total sync calls by model, action and outcome",
	}, []string{"model", "action", "outcome"})

	// operationDuration measures resolve and sync latency.
	// Labels: operation (resolve, sync)
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "relsync",
		Name:      "operation_duration_seconds",
		Help:      "Latency of pool operations in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)
