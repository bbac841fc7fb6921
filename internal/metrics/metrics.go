// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// mutationsTotal counts store mutations by collection, operation and result
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doctree_mutations_total",
		Help: "Store mutations by collection, operation and result",
	}, []string{"collection", "operation", "result"})

	// snapshotWriteDuration tracks how long whole-collection snapshot writes take
	snapshotWriteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "doctree_snapshot_write_duration_seconds",
		Help:    "Snapshot write duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"collection"})

	snapshotWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doctree_snapshot_write_failures_total",
		Help: "Snapshot writes that failed",
	}, []string{"collection"})

	collectionSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "doctree_collection_size",
		Help: "Number of records held by each collection",
	}, []string{"collection"})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "doctree_sessions_active",
		Help: "Sessions currently held in the session table",
	})

	authDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doctree_auth_decisions_total",
		Help: "Guard chain outcomes",
	}, []string{"outcome"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "doctree_http_request_duration_seconds",
		Help:    "HTTP request duration by method, route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// ObserveMutation records the result of a store mutation.
func ObserveMutation(collection, operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	mutationsTotal.WithLabelValues(collection, operation, result).Inc()
}

// ObserveSnapshotWrite records a snapshot write that started at started.
func ObserveSnapshotWrite(collection string, started time.Time, err error) {
	snapshotWriteDuration.WithLabelValues(collection).Observe(time.Since(started).Seconds())
	if err != nil {
		snapshotWriteFailures.WithLabelValues(collection).Inc()
	}
}

func SetCollectionSize(collection string, n int) {
	collectionSize.WithLabelValues(collection).Set(float64(n))
}

func SetSessionsActive(n int) {
	sessionsActive.Set(float64(n))
}

func ObserveAuthDecision(outcome string) {
	authDecisions.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest records a served request under its route pattern.
func ObserveHTTPRequest(method, route string, status int, started time.Time) {
	httpRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(time.Since(started).Seconds())
}
