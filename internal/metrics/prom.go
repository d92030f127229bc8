package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "veo3_stage_duration_seconds",
			Help:    "Duration of pipeline stages by stage and outcome.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"stage", "outcome"},
	)

	collaboratorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veo3_collaborator_calls_total",
			Help: "Calls made to model backends by collaborator and outcome.",
		},
		[]string{"collaborator", "outcome"},
	)

	collaboratorRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veo3_collaborator_retries_total",
			Help: "Retried model backend calls by collaborator.",
		},
		[]string{"collaborator"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veo3_http_requests_total",
			Help: "HTTP requests by endpoint, method and status code.",
		},
		[]string{"endpoint", "method", "code"},
	)

	httpLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "veo3_http_request_duration_seconds",
			Help:    "HTTP request latency by endpoint.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "veo3_sessions_active",
		Help: "Sessions currently held in memory.",
	})
)

// ObserveStage records one pipeline stage execution in both sinks.
func ObserveStage(stage, outcome string, d time.Duration) {
	stageDuration.WithLabelValues(stage, outcome).Observe(d.Seconds())
	New(Namespace).
		Dimension("Stage", stage).
		Dimension("Outcome", outcome).
		Duration("StageLatencyMs", d).
		Count("StageCount").
		Flush()
}

// ObserveCall records one collaborator call attempt.
func ObserveCall(collaborator, outcome string, d time.Duration) {
	collaboratorCalls.WithLabelValues(collaborator, outcome).Inc()
	New(Namespace).
		Dimension("Collaborator", collaborator).
		Dimension("Outcome", outcome).
		Duration("CollaboratorLatencyMs", d).
		Count("CollaboratorCallCount").
		Flush()
}

// ObserveRetry records a retried collaborator call.
func ObserveRetry(collaborator string) {
	collaboratorRetries.WithLabelValues(collaborator).Inc()
}

// ObserveRequest records a served HTTP request.
func ObserveRequest(endpoint, method string, code int, d time.Duration) {
	httpRequests.WithLabelValues(endpoint, method, strconv.Itoa(code)).Inc()
	httpLatency.WithLabelValues(endpoint).Observe(d.Seconds())
	New(Namespace).
		Dimension("Endpoint", endpoint).
		Duration("RequestLatencyMs", d).
		Count("RequestCount").
		Property("method", method).
		Property("statusCode", code).
		Flush()
}

// SetActiveSessions reports the size of the session store.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
