package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// LogEntry represents a single log record with structured data.
type LogEntry struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// LogCollector stores captured log entries per task, in arrival order.
type LogCollector struct {
	mu    sync.RWMutex
	logs  map[string][]LogEntry
	order []string // task names in first-seen order
}

// NewLogCollector creates a new LogCollector.
func NewLogCollector() *LogCollector {
	return &LogCollector{
		logs: make(map[string][]LogEntry),
	}
}

// AddLog appends an entry for the named task.
func (c *LogCollector) AddLog(task string, entry LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.logs[task]; !ok {
		c.order = append(c.order, task)
	}
	c.logs[task] = append(c.logs[task], entry)
}

// GetLogs returns a copy of the entries captured for task.
func (c *LogCollector) GetLogs(task string) []LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	logs, exists := c.logs[task]
	if !exists {
		return nil
	}
	result := make([]LogEntry, len(logs))
	copy(result, logs)
	return result
}

// Tasks returns the task names that logged anything, in first-seen order.
func (c *LogCollector) Tasks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]string, len(c.order))
	copy(result, c.order)
	return result
}

// TaskLogs is one task's section of a run report.
type TaskLogs struct {
	Task    string     `json:"task"`
	Entries []LogEntry `json:"entries"`
}

// RunReport is the JSON document written by WriteReport.
type RunReport struct {
	RunID       string     `json:"run_id"`
	Environment string     `json:"environment"`
	Success     bool       `json:"success"`
	Error       string     `json:"error,omitempty"`
	Tasks       []TaskLogs `json:"tasks"`
}

// Report assembles the captured logs into a RunReport.
func (c *LogCollector) Report(runID, environment string, runErr error) RunReport {
	report := RunReport{
		RunID:       runID,
		Environment: environment,
		Success:     runErr == nil,
	}
	if runErr != nil {
		report.Error = runErr.Error()
	}
	for _, task := range c.Tasks() {
		report.Tasks = append(report.Tasks, TaskLogs{Task: task, Entries: c.GetLogs(task)})
	}
	return report
}

// WriteReport writes the run report as indented JSON to path.
func (c *LogCollector) WriteReport(path, runID, environment string, runErr error) error {
	data, err := json.MarshalIndent(c.Report(runID, environment, runErr), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing run report %s: %w", path, err)
	}
	return nil
}
