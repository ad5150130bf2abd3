package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	recordsIngested *prometheus.CounterVec
	recordsInvalid  *prometheus.CounterVec
	mergeRuns       *prometheus.CounterVec
	mergedRecords   *prometheus.CounterVec
	jobRuns         *prometheus.CounterVec
	jobErrors       *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers the service instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		recordsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetria_records_ingested_total",
			Help: "Raw telemetry records accepted, by source (cv|intake).",
		}, []string{"source"}),
		recordsInvalid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetria_records_invalid_total",
			Help: "Raw telemetry records rejected by validation, by source.",
		}, []string{"source"}),
		mergeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetria_merge_runs_total",
			Help: "Merge runs, by merge type and outcome (merged|noop|error).",
		}, []string{"type", "outcome"}),
		mergedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetria_merged_records_total",
			Help: "Records written to merged stores, by merge type.",
		}, []string{"type"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetria_scheduler_job_runs_total",
			Help: "Scheduler job executions, by job.",
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetria_scheduler_job_errors_total",
			Help: "Scheduler job failures, by job.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "telemetria_scheduler_job_duration_seconds",
			Help:    "Scheduler job duration, by job.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetria_http_requests_total",
			Help: "HTTP requests, by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "telemetria_http_request_duration_seconds",
			Help:    "HTTP request duration, by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	reg.MustRegister(
		m.recordsIngested,
		m.recordsInvalid,
		m.mergeRuns,
		m.mergedRecords,
		m.jobRuns,
		m.jobErrors,
		m.jobDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) IncRecordsIngested(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsIngested.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) IncRecordsInvalid(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsInvalid.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) IncMergeRun(mergeType, outcome string) {
	if m == nil {
		return
	}
	m.mergeRuns.WithLabelValues(mergeType, outcome).Inc()
}

func (m *Metrics) AddMergedRecords(mergeType string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.mergedRecords.WithLabelValues(mergeType).Add(float64(n))
}

func (m *Metrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *Metrics) IncJobError(job string) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(job).Inc()
}

func (m *Metrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *Metrics) observeHTTP(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
