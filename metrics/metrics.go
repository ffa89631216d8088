// Package metrics exports update job counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ota"

// Recorder counts update jobs. It implements update.Metrics.
// All methods are safe on a nil *Recorder.
type Recorder struct {
	jobsOpened  *prometheus.CounterVec
	jobsClosed  *prometheus.CounterVec
	bytes       *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	transfers   *prometheus.CounterVec
}

// NewRecorder creates the update metrics and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		jobsOpened: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_opened_total",
				Help:      "The number of update jobs started",
			},
			[]string{"kind"},
		),
		jobsClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_closed_total",
				Help:      "The number of update jobs ended, by result",
			},
			[]string{"kind", "result"},
		),
		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transferred_bytes_total",
				Help:      "The number of bytes received or sent by update jobs",
			},
			[]string{"kind"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Time from opening to closing an update job",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"kind"},
		),
		transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_rejected_total",
				Help:      "The number of transfers refused by the transport",
			},
			[]string{"reason"},
		),
	}

	if reg != nil {
		reg.MustRegister(r.jobsOpened, r.jobsClosed, r.bytes, r.jobDuration, r.transfers)
	}
	return r
}

// JobOpened implements update.Metrics.
func (r *Recorder) JobOpened(kind string) {
	if r == nil {
		return
	}
	r.jobsOpened.WithLabelValues(kind).Inc()
}

// BytesTransferred implements update.Metrics.
func (r *Recorder) BytesTransferred(kind string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.bytes.WithLabelValues(kind).Add(float64(n))
}

// JobClosed implements update.Metrics.
func (r *Recorder) JobClosed(kind, result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.jobsClosed.WithLabelValues(kind, result).Inc()
	r.jobDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// TransferRejected counts a transfer the transport refused before any job
// was opened, for example because another transfer was running.
func (r *Recorder) TransferRejected(reason string) {
	if r == nil {
		return
	}
	r.transfers.WithLabelValues(reason).Inc()
}
