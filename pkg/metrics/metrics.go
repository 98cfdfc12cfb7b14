package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "siteadmin"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	// StoreWrites counts compare-and-swap writes on the store side, by document
	// kind (or "asset") and outcome (ok, conflict, error).
	StoreWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "store_writes_total", Help: "Number of store writes by kind and outcome."},
		[]string{"kind", "outcome"},
	)

	SyncSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "sync_saves_total", Help: "Number of document save attempts by kind and outcome."},
		[]string{"kind", "outcome"},
	)
	SyncConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "sync_conflicts_total", Help: "Number of version conflicts reported by the store."},
		[]string{"kind"},
	)
	SyncRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "sync_retries_total", Help: "Number of refresh-and-retry rounds after a conflict."},
		[]string{"kind"},
	)
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(StoreWrites)
	reg.MustRegister(SyncSaves)
	reg.MustRegister(SyncConflicts)
	reg.MustRegister(SyncRetries)
}
