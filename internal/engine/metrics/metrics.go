package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VaultsCreated tracks total vaults created
	VaultsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vaultflow_vaults_created_total",
			Help: "Total number of vaults created",
		},
	)

	// ExecutionsTotal tracks execution attempts by outcome
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultflow_executions_total",
			Help: "Total number of vault execution attempts",
		},
		[]string{"result"},
	)

	// CompoundFailures tracks best-effort staking failures after a successful swap
	CompoundFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vaultflow_compound_failures_total",
			Help: "Total number of failed auto-compound attempts",
		},
	)

	// CallbacksDispatched tracks dispatched scheduler callbacks by operation and outcome
	CallbacksDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultflow_callbacks_dispatched_total",
			Help: "Total number of scheduler callbacks dispatched",
		},
		[]string{"op", "outcome"},
	)

	// CallbackLag tracks how far past its due time a callback fired
	CallbackLag = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vaultflow_callback_lag_seconds",
			Help:    "Delay between a callback's due time and its dispatch",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	// ActiveVaults tracks the current size of the active set
	ActiveVaults = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vaultflow_active_vaults",
			Help: "Current number of vaults in the active set",
		},
	)

	// DBConnectionPoolUsage tracks database pool saturation as a percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vaultflow_db_connection_pool_usage",
			Help: "Database connection pool usage percentage",
		},
	)
)

// Execution result labels.
const (
	ResultExecuted = "executed"
	ResultFailed   = "failed"
	ResultSkipped  = "skipped"
)
