package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "slide_copilot"

// Metrics groups the collectors recorded by the action registry and the task runner.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	actionCalls    *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	taskRuns       *prometheus.CounterVec
	tasksRunning   prometheus.Gauge
}

// New creates the collectors and registers them with reg when reg is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		actionCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "action_calls_total",
				Help:      "Action invocations by action name and outcome.",
			},
			[]string{"action", "outcome"},
		),
		actionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Duration of action handler executions.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		taskRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_runs_total",
				Help:      "Generate-next-slide workflow runs by outcome.",
			},
			[]string{"outcome"},
		),
		tasksRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tasks_running",
				Help:      "Generate-next-slide workflows currently in flight.",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.actionCalls, m.actionDuration, m.taskRuns, m.tasksRunning)
	}
	return m
}

func (m *Metrics) ObserveAction(action, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.actionCalls.WithLabelValues(action, outcome).Inc()
	if elapsed > 0 {
		m.actionDuration.WithLabelValues(action).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.tasksRunning.Inc()
}

func (m *Metrics) TaskFinished(outcome string) {
	if m == nil {
		return
	}
	m.tasksRunning.Dec()
	m.taskRuns.WithLabelValues(outcome).Inc()
}
