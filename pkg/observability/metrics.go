// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the runbox service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// ExecutionBuckets defines histogram buckets suited for sandboxed code
// execution latencies, ranging from 100ms to 120s.
var ExecutionBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, path, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runbox_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by path.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runbox_request_duration_seconds",
			Help:    "Request duration",
			Buckets: ExecutionBuckets,
		},
		[]string{"path"},
	)

	// ExecutionsTotal counts code executions by endpoint and outcome.
	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runbox_executions_total",
			Help: "Code executions",
		},
		[]string{"endpoint", "status"},
	)

	// ExecutionsActive tracks the number of executions in flight.
	ExecutionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runbox_executions_active",
			Help: "Executions in flight",
		},
	)

	// SandboxAcquisitionsTotal counts sandbox acquisitions by mode and outcome.
	SandboxAcquisitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runbox_sandbox_acquisitions_total",
			Help: "Sandbox acquisitions",
		},
		[]string{"mode", "status"},
	)

	// ArtifactsCollectedTotal counts output files returned to callers.
	ArtifactsCollectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "runbox_artifacts_collected_total",
			Help: "Collected output files",
		},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "runbox_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ExecutionsTotal,
		ExecutionsActive,
		SandboxAcquisitionsTotal,
		ArtifactsCollectedTotal,
		RateLimitRejectedTotal,
	)
}
