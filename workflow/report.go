package workflow

import (
	"time"
)

// Result contains the outcome of one task in a run.
type Result struct {
	Task  string
	State TaskState
	// Error is set when Init or Execute failed, or when the task was skipped.
	Error    error
	Duration time.Duration
}

// IsSuccess returns true if the task ran and returned no error.
// Skipped tasks are never successful.
func (r *Result) IsSuccess() bool {
	return r.State == Completed && r.Error == nil
}

// Report is the per-task record of a run, in execution order.
type Report struct {
	RunID       string
	Environment string
	Started     time.Time
	Duration    time.Duration
	Results     []*Result
}

// Success reports whether every task completed without error.
func (r *Report) Success() bool {
	if len(r.Results) == 0 {
		return true
	}
	for _, res := range r.Results {
		if !res.IsSuccess() {
			return false
		}
	}
	return true
}

// Result returns the first result for the named task.
func (r *Report) Result(task string) (*Result, bool) {
	for _, res := range r.Results {
		if res.Task == task {
			return res, true
		}
	}
	return nil, false
}

// Failed returns the first task that completed with an error.
func (r *Report) Failed() (*Result, bool) {
	for _, res := range r.Results {
		if res.State == Completed && res.Error != nil {
			return res, true
		}
	}
	return nil, false
}

// Count returns how many tasks ended in state.
func (r *Report) Count(state TaskState) int {
	n := 0
	for _, res := range r.Results {
		if res.State == state {
			n++
		}
	}
	return n
}
