package workflow

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/solrsetup/metrics"
)

const (
	metricTaskRuns        = "task_runs_total"
	metricTaskDuration    = "task_duration_seconds"
	metricRunSuccess      = "run_success"
	metricLastRunFinished = "last_run_timestamp_seconds"
)

// sequencerMetrics records task outcomes into a metrics.Registry.
type sequencerMetrics struct {
	runs     metrics.CounterVec
	duration metrics.GaugeVec
	success  metrics.GaugeVec
	lastRun  metrics.GaugeVec
}

func newSequencerMetrics(reg metrics.Registry) (*sequencerMetrics, error) {
	runs, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: metricTaskRuns,
		Help: "Count of task executions by outcome",
	}, []string{"task", "outcome"})
	if err != nil {
		return nil, fmt.Errorf("creating %s metric: %w", metricTaskRuns, err)
	}

	duration, err := reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: metricTaskDuration,
		Help: "Wall time of the most recent execution of each task",
	}, []string{"task"})
	if err != nil {
		return nil, fmt.Errorf("creating %s metric: %w", metricTaskDuration, err)
	}

	success, err := reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: metricRunSuccess,
		Help: "1 if the most recent run succeeded, 0 otherwise",
	}, []string{"environment"})
	if err != nil {
		return nil, fmt.Errorf("creating %s metric: %w", metricRunSuccess, err)
	}

	lastRun, err := reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: metricLastRunFinished,
		Help: "Unix timestamp of the most recent finished run",
	}, []string{"environment"})
	if err != nil {
		return nil, fmt.Errorf("creating %s metric: %w", metricLastRunFinished, err)
	}

	return &sequencerMetrics{
		runs:     runs,
		duration: duration,
		success:  success,
		lastRun:  lastRun,
	}, nil
}

func (m *sequencerMetrics) observeTask(res *Result) {
	if m == nil {
		return
	}
	outcome := "success"
	if res.Error != nil {
		outcome = "failure"
	}
	m.runs.With(prometheus.Labels{"task": res.Task, "outcome": outcome}).Inc()
	m.duration.With(prometheus.Labels{"task": res.Task}).Set(res.Duration.Seconds())
}

func (m *sequencerMetrics) observeRun(env string, ok bool) {
	if m == nil {
		return
	}
	v := 0.0
	if ok {
		v = 1
	}
	labels := prometheus.Labels{"environment": env}
	m.success.With(labels).Set(v)
	m.lastRun.With(labels).Set(float64(time.Now().Unix()))
}
