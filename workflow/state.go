package workflow

// TaskState represents where a task is in a run.
type TaskState int

const (
	// NotStarted indicates the task is part of the run but has not been scheduled.
	// If initialization fails, every task stays NotStarted.
	NotStarted TaskState = iota

	// Pending indicates the task is waiting for the tasks ahead of it.
	Pending

	// Running indicates the task is currently executing.
	Running

	// Skipped indicates the task never ran because an earlier task failed
	// or the run was cancelled.
	Skipped

	// Completed indicates the task has finished.
	// The task may have succeeded or failed - check the Error field.
	Completed
)

// String returns a human-readable representation of the TaskState.
func (s TaskState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Skipped:
		return "skipped"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}
