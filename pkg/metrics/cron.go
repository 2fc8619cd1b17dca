package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cron job outcomes.
const (
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
	JobSkipped   = "skipped"
)

// CronJobMetrics records maintenance job runs.
type CronJobMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lastOK   *prometheus.GaugeVec
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return nil
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cron_job_runs_total",
			Help:      "Maintenance job runs by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cron_job_duration_seconds",
			Help:      "Maintenance job run time.",
			Buckets:   []float64{.05, .25, 1, 5, 30, 120, 600},
		}, []string{"job"}),
		lastOK: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cron_job_last_success_timestamp_seconds",
			Help:      "Unix time of each job's last successful run.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastOK)
	return m
}

// ObserveRun records one executed run; err decides the outcome.
func (c *CronJobMetrics) ObserveRun(job string, took time.Duration, err error) {
	if c == nil {
		return
	}
	job = normalizeLabel(job)
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	if err != nil {
		c.runs.WithLabelValues(job, JobFailed).Inc()
		return
	}
	c.runs.WithLabelValues(job, JobSucceeded).Inc()
	c.lastOK.WithLabelValues(job).SetToCurrentTime()
}

// Skipped counts a cycle where another worker held the lock.
func (c *CronJobMetrics) Skipped(job string) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(normalizeLabel(job), JobSkipped).Inc()
}
