// Package metrics provides Prometheus metrics for the wallet vault.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UnlockAttemptsTotal counts unlock attempts by outcome
	// (ok, wrong_password, no_bundle, error).
	UnlockAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lumenvault",
			Name:      "unlock_attempts_total",
			Help:      "Total number of vault unlock attempts",
		},
		[]string{"outcome"},
	)

	// AutoLocksTotal counts sessions closed by the auto-lock timer.
	AutoLocksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lumenvault",
			Name:      "auto_locks_total",
			Help:      "Total number of sessions closed by the auto-lock timer",
		},
	)

	// SignRequestsTotal counts sign requests by outcome
	// (signed, rejected, failed).
	SignRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lumenvault",
			Name:      "sign_requests_total",
			Help:      "Total number of resolved sign requests",
		},
		[]string{"outcome"},
	)

	// TransactionsBuiltTotal counts unsigned transactions by kind
	// (payment, path_payment_strict_send, path_payment_strict_receive).
	TransactionsBuiltTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lumenvault",
			Name:      "transactions_built_total",
			Help:      "Total number of unsigned transactions built",
		},
		[]string{"kind"},
	)

	// FeeFallbacksTotal counts builds that fell back to the minimum base
	// fee because the fee-stats lookup failed.
	FeeFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lumenvault",
			Name:      "fee_fallbacks_total",
			Help:      "Total number of builds that used the fallback base fee",
		},
	)
)
