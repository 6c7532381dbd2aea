package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	// LedgerOperations counts ledger engine operations by outcome
	LedgerOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total number of ledger operations",
		},
		[]string{"operation", "status"},
	)

	// LedgerOperationDuration measures ledger operation latency
	LedgerOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Duration of ledger operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// InterestDistributed accumulates coins created by accrual runs
	InterestDistributed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interest_distributed_coins_total",
			Help: "Total coins distributed by interest accrual",
		},
	)

	// AccrualRuns counts accrual scheduler firings by outcome
	AccrualRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accrual_runs_total",
			Help: "Total number of interest accrual runs",
		},
		[]string{"status"},
	)

	// Debtors tracks the number of accounts with outstanding debt
	Debtors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_debtors",
			Help: "Number of accounts with outstanding debt",
		},
	)
)

// InitMetrics registers the collectors and serves /metrics on addr
func InitMetrics(addr string) {
	prometheus.MustRegister(
		LedgerOperations,
		LedgerOperationDuration,
		InterestDistributed,
		AccrualRuns,
		Debtors,
	)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.WithError(err).Error("Metrics server stopped")
		}
	}()
}
