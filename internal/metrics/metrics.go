// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors. It is separate from the
	// default registry so tests can gather it without global process metrics.
	Registry = prometheus.NewRegistry()

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "richway",
			Name:      "submissions_total",
			Help:      "Registration submissions by outcome.",
		},
		[]string{"outcome"},
	)

	storeAppend = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "richway",
			Subsystem: "store",
			Name:      "append_seconds",
			Help:      "Duration of record store appends.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"backend", "status"},
	)

	backgroundTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "richway",
			Name:      "background_tasks_total",
			Help:      "Background tasks (welcome emails) by outcome.",
		},
		[]string{"task", "outcome"},
	)

	backgroundInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "richway",
			Name:      "background_tasks_inflight",
			Help:      "Background tasks currently queued or running.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "richway",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "richway",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		submissions,
		storeAppend,
		backgroundTasks,
		backgroundInFlight,
		httpRequests,
		httpDuration,
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordSubmission counts one submission. Outcome is "stored", "unstored"
// (best-effort store failed) or "failed".
func RecordSubmission(outcome string) {
	submissions.WithLabelValues(outcome).Inc()
}

// ObserveAppend records the latency of one store append.
func ObserveAppend(backend string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	storeAppend.WithLabelValues(backend, status).Observe(d.Seconds())
}

// TaskStarted and TaskFinished track background task lifecycle.
func TaskStarted() {
	backgroundInFlight.Inc()
}

func TaskFinished(task string, err error) {
	backgroundInFlight.Dec()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	backgroundTasks.WithLabelValues(task, outcome).Inc()
}

// ObserveHTTP records one served request. Route should be the matched chi
// pattern, not the raw path, to keep label cardinality bounded.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
