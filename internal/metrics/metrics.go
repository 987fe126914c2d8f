package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks worker throughput and processing outcomes.
type Metrics struct {
	JobsConsumed     prometheus.Counter
	JobsCompleted    prometheus.Counter
	JobsFailed       prometheus.Counter
	JobsRetried      prometheus.Counter
	JobsDeadLettered prometheus.Counter
	JobDuration      prometheus.Histogram
	TokensUsed       prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resume_worker_jobs_consumed_total",
			Help: "Total number of job messages consumed from the queue.",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resume_worker_jobs_completed_total",
			Help: "Total number of jobs that finished successfully.",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resume_worker_jobs_failed_total",
			Help: "Total number of jobs that failed processing.",
		}),
		JobsRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resume_worker_jobs_retried_total",
			Help: "Total number of job messages republished for retry.",
		}),
		JobsDeadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resume_worker_jobs_dead_lettered_total",
			Help: "Total number of job messages routed to the dead-letter queue.",
		}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "resume_worker_job_duration_seconds",
			Help:    "Wall-clock time spent processing a job.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		TokensUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resume_worker_enrichment_tokens_total",
			Help: "Total AI tokens consumed by content enrichment.",
		}),
	}

	reg.MustRegister(
		m.JobsConsumed,
		m.JobsCompleted,
		m.JobsFailed,
		m.JobsRetried,
		m.JobsDeadLettered,
		m.JobDuration,
		m.TokensUsed,
	)

	return m
}
