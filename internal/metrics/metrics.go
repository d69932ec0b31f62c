package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DepositsObserved counts deposits observed on each chain.
	DepositsObserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_deposits_observed_total",
			Help: "Total number of deposit events observed",
		},
		[]string{"chain", "dest_chain_type"},
	)

	// ApprovalsSubmitted counts withdrawal approvals submitted per
	// destination chain.
	ApprovalsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_approvals_submitted_total",
			Help: "Total number of withdrawal approvals submitted",
		},
		[]string{"dest_chain", "status"},
	)

	// CancellationsSubmitted counts withdrawal cancellations submitted per
	// destination chain and route ("evm" or "cosmos", the destination
	// chain's kind).
	CancellationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_cancellations_submitted_total",
			Help: "Total number of withdrawal cancellations submitted",
		},
		[]string{"dest_chain", "route", "status"},
	)

	// WithdrawalsExecuted counts withdrawExecute dispatches per destination
	// chain, once the cancel window has elapsed on an approved withdrawal.
	WithdrawalsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_withdrawals_executed_total",
			Help: "Total number of withdrawal executions submitted",
		},
		[]string{"dest_chain", "status"},
	)

	// CircuitBreakerTrips counts canceler circuit breaker trips per chain.
	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_circuit_breaker_trips_total",
			Help: "Total number of canceler circuit breaker trips",
		},
		[]string{"chain"},
	)

	// CacheEvictions counts bounded-cache evictions by cache name.
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_cache_evictions_total",
			Help: "Total number of bounded cache evictions",
		},
		[]string{"cache"},
	)

	// RPCErrors counts RPC/LCD errors by chain and operation.
	RPCErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_rpc_errors_total",
			Help: "Total number of chain RPC/LCD errors",
		},
		[]string{"chain", "operation"},
	)

	// DataInconsistencies counts records flagged as permanently
	// inconsistent (malformed address, missing registry mapping) rather
	// than silently defaulted.
	DataInconsistencies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_data_inconsistencies_total",
			Help: "Total number of records flagged with a data inconsistency",
		},
		[]string{"component"},
	)

	// PendingApprovals tracks the current backlog size per destination
	// chain.
	PendingApprovals = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_pending_approvals",
			Help: "Number of pending approvals by destination chain",
		},
		[]string{"dest_chain"},
	)

	// LastProcessedBlock tracks the last processed block/height per
	// chain.
	LastProcessedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_last_processed_block",
			Help: "Last processed block or height by chain",
		},
		[]string{"chain"},
	)

	// GasUsed tracks gas used for EVM transactions.
	GasUsed = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_gas_used",
			Help:    "Gas used for EVM transactions",
			Buckets: []float64{21000, 50000, 100000, 200000, 300000, 500000},
		},
		[]string{"operation"},
	)
)
