// Package metrics exposes Prometheus counters for notification dispatch.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// sendOutcomes counts classified per-recipient sends.
	// Labels:
	// - kind: "success", "failed_recipient" or "failed"
	sendOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graphmail",
			Subsystem: "dispatch",
			Name:      "send_outcomes_total",
			Help:      "Per-recipient send outcomes by kind",
		},
		[]string{"kind"},
	)

	// batchResults counts aggregated batch results.
	batchResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graphmail",
			Subsystem: "dispatch",
			Name:      "batch_results_total",
			Help:      "Aggregated batch results by kind",
		},
		[]string{"kind"},
	)

	batchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "graphmail",
			Subsystem: "dispatch",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of a dispatched batch",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// transportRequests counts provider calls.
	// Labels:
	// - sender_type: "office365", "ses", "noop"
	// - status: HTTP status class or "error"
	transportRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graphmail",
			Subsystem: "transport",
			Name:      "requests_total",
			Help:      "Mail provider requests by sender type and status",
		},
		[]string{"sender_type", "status"},
	)

	queueJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graphmail",
			Subsystem: "queue",
			Name:      "jobs_total",
			Help:      "Notification jobs by lifecycle event",
		},
		[]string{"event"},
	)
)

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// IncSendOutcome counts one classified send.
func IncSendOutcome(kind string) {
	sendOutcomes.WithLabelValues(orUnknown(kind)).Inc()
}

// ObserveBatch records a finished batch.
func ObserveBatch(kind string, elapsed time.Duration) {
	kind = orUnknown(kind)
	batchResults.WithLabelValues(kind).Inc()
	batchDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// IncTransportRequest counts one provider call.
func IncTransportRequest(senderType, status string) {
	transportRequests.WithLabelValues(orUnknown(senderType), orUnknown(status)).Inc()
}

// IncQueueJob counts a job event such as "enqueued", "completed" or "failed".
func IncQueueJob(event string) {
	queueJobs.WithLabelValues(orUnknown(event)).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
