package monitoring

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mintsObserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mints_observed_total",
			Help: "Mint observations by outcome",
		},
		[]string{"source", "outcome"},
	)

	reconcileOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_operations_total",
			Help: "Reconciliation engine operations",
		},
		[]string{"operation", "status"},
	)

	verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_verifications_total",
			Help: "Verification gate results",
		},
		[]string{"result"},
	)

	watcherReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watcher_reconnects_total",
			Help: "Chain watcher resubscription attempts",
		},
	)

	watcherConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watcher_connected",
			Help: "Whether the chain watcher subscription is up",
		},
	)

	ledgerRPCDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_rpc_duration_seconds",
			Help:    "Duration of ledger RPC calls",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"method"},
	)
)

func TrackMintObserved(source, outcome string) {
	mintsObserved.WithLabelValues(source, outcome).Inc()
}

func TrackReconcile(operation, status string) {
	reconcileOperations.WithLabelValues(operation, status).Inc()
}

func TrackVerification(result string) {
	verifications.WithLabelValues(result).Inc()
}

func TrackWatcherReconnect() {
	watcherReconnects.Inc()
}

func SetWatcherConnected(up bool) {
	if up {
		watcherConnected.Set(1)
	} else {
		watcherConnected.Set(0)
	}
}

func TrackLedgerRPC(method string, duration time.Duration) {
	ledgerRPCDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// StartMetricsServer serves /metrics on its own listener.
func StartMetricsServer(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			log.Printf("StartMetricsServer: %v", err)
		}
	}()
}
