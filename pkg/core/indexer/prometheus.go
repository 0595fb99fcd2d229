package indexer

import "github.com/prometheus/client_golang/prometheus"

// Metrics for monitoring service.
var (
	//keysCount prometheus metric.
	keysCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Number of keys in the trie",
			Name:      "keys",
			Namespace: "mptindexer",
		},
	)
	//operations prometheus metric.
	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of successful trie operations",
			Name:      "operations_total",
			Namespace: "mptindexer",
		},
		[]string{"op"},
	)
	//rootUpdates prometheus metric.
	rootUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of persisted root digest changes",
			Name:      "root_updates_total",
			Namespace: "mptindexer",
		},
	)
)

func init() {
	prometheus.MustRegister(
		keysCount,
		operations,
		rootUpdates,
	)
}

func updateKeysMetric(n int) {
	keysCount.Set(float64(n))
}

func addOperationMetric(op string) {
	operations.WithLabelValues(op).Inc()
}

func addRootUpdateMetric() {
	rootUpdates.Inc()
}
