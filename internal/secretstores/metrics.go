package secretstores

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOperationsTotal   *prometheus.CounterVec
	storeOperationDuration *prometheus.HistogramVec

	metricsOnce sync.Once
)

// Operation results recorded in secretsplit_store_operations_total.
const (
	resultFound  = "found"
	resultAbsent = "absent"
	resultOK     = "ok"
	resultError  = "error"
)

// InitMetrics registers the store metrics with the default Prometheus
// registry. Safe to call more than once.
func InitMetrics() {
	metricsOnce.Do(func() {
		storeOperationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretsplit_store_operations_total",
				Help: "Total number of secret store operations by result",
			},
			[]string{"store", "type", "op", "result"},
		)

		storeOperationDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "secretsplit_store_operation_duration_seconds",
				Help:    "Duration of secret store operations in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"store", "type", "op"},
		)
	})
}

func recordOperation(store, storeType, op, result string, elapsed time.Duration) {
	InitMetrics()
	storeOperationsTotal.WithLabelValues(store, storeType, op, result).Inc()
	storeOperationDuration.WithLabelValues(store, storeType, op).Observe(elapsed.Seconds())
}
