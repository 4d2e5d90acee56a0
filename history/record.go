// Package history keeps a record of past runs on disk, one JSON file per run.
package history

import (
	"time"

	"github.com/nomis52/solrsetup/logging"
	"github.com/nomis52/solrsetup/workflow"
)

// TaskRecord is the outcome of one task within a run.
type TaskRecord struct {
	Task     string             `json:"task"`
	State    string             `json:"state"`
	Error    string             `json:"error,omitempty"`
	Duration time.Duration      `json:"duration_ns"`
	Logs     []logging.LogEntry `json:"logs,omitempty"`
}

// Run is the persisted record of one invocation.
type Run struct {
	ID          string        `json:"id"`
	Environment string        `json:"environment"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	Tasks       []TaskRecord  `json:"tasks"`
}

// FromReport builds a Run from a sequencer report. Logs are attached per task
// when collector is non-nil.
func FromReport(report *workflow.Report, runErr error, collector *logging.LogCollector) Run {
	run := Run{
		ID:          report.RunID,
		Environment: report.Environment,
		StartedAt:   report.Started,
		Duration:    report.Duration,
		Success:     runErr == nil && report.Success(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	for _, res := range report.Results {
		rec := TaskRecord{
			Task:     res.Task,
			State:    res.State.String(),
			Duration: res.Duration,
		}
		if res.Error != nil {
			rec.Error = res.Error.Error()
		}
		if collector != nil {
			rec.Logs = collector.GetLogs(res.Task)
		}
		run.Tasks = append(run.Tasks, rec)
	}
	return run
}
