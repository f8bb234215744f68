package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// 升级流程指标
	// ============================================
	WorkflowRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eoa_upgrade_runs_total",
			Help: "Total number of upgrade workflow runs by outcome",
		},
		[]string{"network", "outcome"},
	)

	WorkflowStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eoa_upgrade_step_duration_seconds",
			Help:    "Upgrade workflow step duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"step"},
	)

	WorkflowStepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eoa_upgrade_step_failures_total",
			Help: "Total number of fatal step failures",
		},
		[]string{"step", "kind"},
	)

	// ============================================
	// 交易指标
	// ============================================
	TransactionsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eoa_upgrade_transactions_sent_total",
			Help: "Total number of transactions broadcast",
		},
		[]string{"type"},
	)

	TransactionGasUsed = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eoa_upgrade_transaction_gas_used",
			Help:    "Gas used by confirmed transactions",
			Buckets: prometheus.ExponentialBuckets(21000, 1.5, 10),
		},
		[]string{"type"},
	)

	ReceiptWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eoa_upgrade_receipt_wait_seconds",
		Help:    "Time spent waiting for transaction receipts",
		Buckets: prometheus.DefBuckets,
	})

	// ============================================
	// NATS 连接指标
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eoa_upgrade_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eoa_upgrade_nats_events_published_total",
			Help: "Total number of run events published to NATS",
		},
		[]string{"outcome"},
	)

	// ============================================
	// 余额监控指标
	// ============================================
	AccountBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eoa_upgrade_account_balance_wei",
			Help: "Native balance of workflow accounts in wei",
		},
		[]string{"chain", "role", "address"},
	)
)
