// Package metrics holds the Prometheus instruments of the credit service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "credshield"

// Scoring
var (
	ScoresComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scores_computed_total",
			Help:      "Scoring passes by resulting tier",
		},
		[]string{"tier"},
	)

	ScoreValue = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score_value",
			Help:      "Distribution of composite scores",
			Buckets:   prometheus.LinearBuckets(300, 50, 13),
		},
	)

	SnapshotFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_fallbacks_total",
			Help:      "Scoring passes that ran on an empty snapshot after a chain-data failure",
		},
	)

	NarrativeFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrative_fallbacks_total",
			Help:      "Reports generated from the deterministic template",
		},
	)
)

// Lending
var (
	LoansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loans_total",
			Help:      "Loan lifecycle events",
		},
		[]string{"event"},
	)

	LendingErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lending_errors_total",
			Help:      "Rejected lending operations",
		},
		[]string{"op", "reason"},
	)

	CollateralOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collateral_ops_total",
			Help:      "Collateral vault movements",
		},
		[]string{"op"},
	)

	PublisherErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publisher_errors_total",
			Help:      "Failed external ledger publications",
		},
		[]string{"op"},
	)

	OverdueLoans = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overdue_loans",
			Help:      "Active loans past their next due time at the last monitor poll",
		},
	)

	LockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for per-borrower locks",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
)

func RecordScore(tier string, score int) {
	ScoresComputed.WithLabelValues(tier).Inc()
	ScoreValue.Observe(float64(score))
}

func RecordLoanEvent(event string) {
	LoansTotal.WithLabelValues(event).Inc()
}

func RecordLendingError(op, reason string) {
	LendingErrors.WithLabelValues(op, reason).Inc()
}

func RecordCollateralOp(op string) {
	CollateralOps.WithLabelValues(op).Inc()
}

func RecordPublisherError(op string) {
	PublisherErrors.WithLabelValues(op).Inc()
}

func RecordLockWait(seconds float64) {
	LockWait.Observe(seconds)
}
