// Package metrics exposes the adapter's prometheus counters and gauges,
// built with promauto and registered at package init.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mysqlredisd"

var (
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Total queries executed, labeled by classification.",
	}, []string{"query_type"})

	QueriesRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_rejected_total",
		Help:      "Total queries rejected by the whitelist.",
	})

	RateLimitExceededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_exceeded_total",
		Help:      "Total requests throttled by the per-IP rate limiter.",
	})

	ScanOperationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_operations_total",
		Help:      "Total full-table scans triggered.",
	})

	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_connections",
		Help:      "Currently admitted connections.",
	})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_duration_seconds",
		Help:      "Query execution latency by classification.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"query_type"})
)

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
