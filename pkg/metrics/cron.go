package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Skip reasons reported by the scheduler.
const (
	SkipOverlap  = "overlap"
	SkipLockHeld = "lock_held"
)

// SchedulerMetrics records outcomes for scheduled jobs.
type SchedulerMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	rows     *prometheus.CounterVec
}

// NewSchedulerMetrics registers the scheduler collectors on the provided registerer.
func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	if reg == nil {
		return &SchedulerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of scheduled job ticks in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_success",
		Help: "Successful scheduled job ticks.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_failure",
		Help: "Failed scheduled job ticks.",
	}, []string{"job"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_skipped",
		Help: "Scheduled job ticks skipped because a previous run still holds the job.",
	}, []string{"job", "reason"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_rows_total",
		Help: "Rows processed by scheduled jobs, by outcome.",
	}, []string{"job", "outcome"})
	reg.MustRegister(duration, success, failure, skipped, rows)
	return &SchedulerMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		skipped:  skipped,
		rows:     rows,
	}
}

// ObserveDuration records the duration for the named job.
func (m *SchedulerMetrics) ObserveDuration(job string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (m *SchedulerMetrics) IncSuccess(job string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (m *SchedulerMetrics) IncFailure(job string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncSkipped counts a tick that did not run.
func (m *SchedulerMetrics) IncSkipped(job, reason string) {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(job), normalizeLabel(reason)).Inc()
}

// AddRows adds the per-outcome counts reported by a job tick.
func (m *SchedulerMetrics) AddRows(job string, counts map[string]int) {
	if m == nil || m.rows == nil {
		return
	}
	for outcome, n := range counts {
		if n <= 0 {
			continue
		}
		m.rows.WithLabelValues(normalizeLabel(job), normalizeLabel(outcome)).Add(float64(n))
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
