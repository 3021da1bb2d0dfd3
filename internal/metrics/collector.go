package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

// DefaultScrapeTimeout bounds a single read of the job store during a scrape.
const DefaultScrapeTimeout = 10 * time.Second

// Job metric family names. Dashboards depend on these and their labels.
const (
	JobDurationName    = "batch_job_duration_seconds"
	JobCountName       = "batch_job_count_total"
	JobStartTimeName   = "batch_job_start_time"
	JobRunningName     = "batch_job_running"
	JobLastSuccessName = "batch_job_last_success_timestamp_seconds"
	JobMalformedName   = "batch_job_malformed_records"
)

var (
	jobDurationDesc = prometheus.NewDesc(JobDurationName,
		"Duration of the most recently finished batch job",
		[]string{"job_name", "status"}, nil)

	jobCountDesc = prometheus.NewDesc(JobCountName,
		"Total count of finished batch jobs",
		[]string{"job_name", "status"}, nil)

	jobStartTimeDesc = prometheus.NewDesc(JobStartTimeName,
		"Start time of the latest batch job run as unix timestamp",
		[]string{"job_name"}, nil)

	jobRunningDesc = prometheus.NewDesc(JobRunningName,
		"Number of batch job runs currently running",
		[]string{"job_name"}, nil)

	jobLastSuccessDesc = prometheus.NewDesc(JobLastSuccessName,
		"End time of the latest completed batch job run as unix timestamp",
		[]string{"job_name"}, nil)

	jobMalformedDesc = prometheus.NewDesc(JobMalformedName,
		"Number of stored job records skipped as malformed during this scrape",
		nil, nil)
)

// JobCollector derives the batch_job_* families from the job store on every
// scrape. It keeps no state between scrapes.
type JobCollector struct {
	store   jobs.Store
	logger  *slog.Logger
	timeout time.Duration
}

var _ prometheus.Collector = (*JobCollector)(nil)

// NewJobCollector creates a collector reading from store.
func NewJobCollector(store jobs.Store, logger *slog.Logger) *JobCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobCollector{
		store:   store,
		logger:  logger.With("component", "job_collector"),
		timeout: DefaultScrapeTimeout,
	}
}

// Describe sends the descriptors of every job family.
func (c *JobCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- jobDurationDesc
	ch <- jobCountDesc
	ch <- jobStartTimeDesc
	ch <- jobRunningDesc
	ch <- jobLastSuccessDesc
	ch <- jobMalformedDesc
}

// Collect reads the store and emits the job families.
func (c *JobCollector) Collect(ch chan<- prometheus.Metric) {
	started := time.Now()
	defer func() { ScrapeDuration.Observe(time.Since(started).Seconds()) }()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	recs, err := c.store.List(ctx, jobs.ListOptions{})
	if err != nil {
		ScrapeErrorsTotal.Inc()
		c.logger.Error("failed to read job store during scrape", "error", err)
		ch <- prometheus.NewInvalidMetric(jobCountDesc, err)
		return
	}

	snap := Aggregate(recs)
	for _, bad := range snap.Malformed {
		c.logger.Warn("skipping malformed job record", "job_id", bad.ID, "error", bad.Err)
	}

	emit := func(desc *prometheus.Desc, vt prometheus.ValueType, v float64, labels ...string) {
		m, err := prometheus.NewConstMetric(desc, vt, v, labels...)
		if err != nil {
			c.logger.Warn("skipping job metric with invalid labels", "labels", labels, "error", err)
			return
		}
		ch <- m
	}

	for k, d := range snap.LatestDuration {
		emit(jobDurationDesc, prometheus.GaugeValue, d.Seconds(), k.Name, string(k.Status))
	}
	for k, n := range snap.Counts {
		emit(jobCountDesc, prometheus.CounterValue, float64(n), k.Name, string(k.Status))
	}
	for name, t := range snap.LatestStart {
		emit(jobStartTimeDesc, prometheus.GaugeValue, unixSeconds(t), name)
	}
	for name, n := range snap.Running {
		emit(jobRunningDesc, prometheus.GaugeValue, float64(n), name)
	}
	for name, t := range snap.LastSuccess {
		emit(jobLastSuccessDesc, prometheus.GaugeValue, unixSeconds(t), name)
	}
	emit(jobMalformedDesc, prometheus.GaugeValue, float64(len(snap.Malformed)))
}

// NewRegistry returns a Prometheus registry carrying the job collector.
func NewRegistry(store jobs.Store, logger *slog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewJobCollector(store, logger))
	return reg
}

// Handler serves the job families together with the default registry
// (self-instrumentation, Go and process collectors).
func Handler(reg *prometheus.Registry, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer, reg}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	})
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
