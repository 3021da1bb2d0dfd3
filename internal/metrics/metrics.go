// Package metrics exposes batch job metrics in the Prometheus exposition format.
//
// Job families (batch_job_*) are derived from the job store on every scrape
// by JobCollector. Self-instrumentation of the service (batchmon_*) lives in
// package-level collectors registered with the default registry.
package metrics

import (
	"errors"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

const (
	namespace = "batchmon"
)

// Registry metrics track job registry operations.
var (
	// RegistryOperationsTotal is the total number of registry operations by outcome.
	RegistryOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registry_operations_total",
		Help:      "Total number of job registry operations",
	}, []string{"operation", "result"})

	// RegistryOperationDuration is a histogram of registry operation latency.
	RegistryOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "registry_operation_duration_seconds",
		Help:      "Duration of job registry operations in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	}, []string{"operation"})
)

// Scrape metrics track the job collector itself.
var (
	// ScrapeErrorsTotal counts scrapes where the job store could not be read.
	ScrapeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scrape_errors_total",
		Help:      "Total number of scrapes that failed to read the job store",
	})

	// ScrapeDuration is a histogram of time spent deriving job metrics.
	ScrapeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scrape_duration_seconds",
		Help:      "Duration of job metric derivation in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~1s
	})
)

// HTTP metrics track the job API.
var (
	// HTTPRequestsTotal is the total number of HTTP requests by route and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "route", "code"})
)

// Service metrics describe the running process.
var (
	// BuildInfo provides version and build information.
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Version and build information",
	}, []string{"version", "go_version"})

	// StartTime is the unix timestamp when the service started.
	StartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "start_time_seconds",
		Help:      "Unix timestamp when the service started",
	})

	// StoreUp reports whether the last store health check succeeded.
	StoreUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_up",
		Help:      "Whether the job store is reachable (1=up, 0=down)",
	}, []string{"backend"})
)

// Operation results reported in RegistryOperationsTotal.
const (
	ResultOK              = "ok"
	ResultUnknownJob      = "unknown_job"
	ResultAlreadyFinished = "already_finished"
	ResultInvalid         = "invalid"
	ResultStoreError      = "store_error"
	ResultError           = "error"
)

// OperationRecorder implements jobs.Recorder on the registry metrics.
type OperationRecorder struct{}

var _ jobs.Recorder = OperationRecorder{}

// RecordOperation records one registry operation.
func (OperationRecorder) RecordOperation(op string, duration time.Duration, err error) {
	RegistryOperationsTotal.WithLabelValues(op, classify(err)).Inc()
	RegistryOperationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func classify(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, jobs.ErrUnknownJob):
		return ResultUnknownJob
	case errors.Is(err, jobs.ErrAlreadyFinished):
		return ResultAlreadyFinished
	case errors.Is(err, jobs.ErrInvalidStatus), errors.Is(err, jobs.ErrInvalidName):
		return ResultInvalid
	case jobs.IsStoreError(err):
		return ResultStoreError
	default:
		return ResultError
	}
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(method, route string, code int) {
	HTTPRequestsTotal.WithLabelValues(method, route, statusText(code)).Inc()
}

// SetBuildInfo publishes the service version and start time.
func SetBuildInfo(version string, started time.Time) {
	BuildInfo.WithLabelValues(version, runtime.Version()).Set(1)
	StartTime.Set(float64(started.Unix()))
}

// SetStoreUp records the outcome of a store health check.
func SetStoreUp(backend string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	StoreUp.WithLabelValues(backend).Set(v)
}

func statusText(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
