package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "slackagent"

// Admission outcomes for Submit.
const (
	AdmitStarted      = "started"
	AdmitQueued       = "queued"
	AdmitParallel     = "parallel"
	AdmitAsked        = "asked"
	AdmitRejected     = "rejected"
	AdmitUnconfigured = "unconfigured"
	AdmitOverBudget   = "over_budget"
	AdmitInvalid      = "invalid"
)

// Metrics exposes Prometheus collectors for task dispatch and execution.
// All methods are safe on a nil receiver.
type Metrics struct {
	admissions   *prometheus.CounterVec
	finished     *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	stepDuration *prometheus.HistogramVec
	running      prometheus.Gauge
	pending      prometheus.Gauge
	costUSD      prometheus.Counter
}

// MustNewMetrics constructs and registers the collectors. Registration errors panic.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "admissions_total",
			Help:      "Task submissions by admission outcome.",
		}, []string{"outcome"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "tasks_finished_total",
			Help:      "Tasks that reached a terminal state.",
		}, []string{"status"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "task_duration_seconds",
			Help:      "Wall time from task start to terminal state.",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}, []string{"status"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "step_duration_seconds",
			Help:      "Duration of each pipeline step.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 3, 10),
		}, []string{"step"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "tasks_running",
			Help:      "Tasks currently registered as running.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "tasks_pending",
			Help:      "Tasks waiting in channel queues.",
		}),
		costUSD: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cost",
			Name:      "estimated_usd_total",
			Help:      "Estimated spend recorded for completed generation runs.",
		}),
	}
	reg.MustRegister(m.admissions, m.finished, m.taskDuration, m.stepDuration, m.running, m.pending, m.costUSD)
	return m
}

// Admission counts one Submit outcome.
func (m *Metrics) Admission(outcome string) {
	if m == nil {
		return
	}
	m.admissions.WithLabelValues(outcome).Inc()
}

// Finished records a terminal task and its duration.
func (m *Metrics) Finished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.finished.WithLabelValues(status).Inc()
	m.taskDuration.WithLabelValues(status).Observe(d.Seconds())
}

// ObserveStep records the duration of a pipeline step.
func (m *Metrics) ObserveStep(step string, d time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// SetQueueDepth publishes the current running and pending counts.
func (m *Metrics) SetQueueDepth(running, pending int) {
	if m == nil {
		return
	}
	m.running.Set(float64(running))
	m.pending.Set(float64(pending))
}

// AddCost adds an estimated spend.
func (m *Metrics) AddCost(usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.costUSD.Add(usd)
}
