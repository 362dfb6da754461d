// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledgerbook"

// Outbox publication results.
const (
	ResultPublished = "published"
	ResultFailed    = "failed"
)

var (
	// OutboxEvents counts outbox publish attempts by result.
	OutboxEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "events_total",
		Help:      "Outbox events handed to the broker, by result.",
	}, []string{"result"})

	// OutboxBatchDuration observes how long one poll batch takes, publishing included.
	OutboxBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Duration of one outbox poll batch.",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTPRequestDuration observes request latency by route template.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
