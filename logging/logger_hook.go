package logging

import (
	"log/slog"
)

// LoggerHook derives a task-specific logger from the run's base logger.
type LoggerHook interface {
	LoggerForTask(base *slog.Logger, task string) *slog.Logger
}

// CapturingLoggerHook creates task loggers that also record into a LogCollector.
type CapturingLoggerHook struct {
	collector *LogCollector
}

// NewCapturingLoggerHook creates a hook that captures all task logs into collector.
func NewCapturingLoggerHook(collector *LogCollector) LoggerHook {
	return &CapturingLoggerHook{
		collector: collector,
	}
}

// LoggerForTask wraps base with a CapturingHandler bound to task.
func (p *CapturingLoggerHook) LoggerForTask(base *slog.Logger, task string) *slog.Logger {
	return slog.New(NewCapturingHandler(base.Handler(), p.collector, task))
}
