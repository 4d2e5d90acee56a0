package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nomis52/solrsetup/config"
	"github.com/nomis52/solrsetup/logging"
	"github.com/nomis52/solrsetup/metrics"
)

// Sequencer runs tasks from a Registry one at a time against a RunContext.
type Sequencer struct {
	registry   *Registry
	rc         *config.RunContext
	base       *slog.Logger
	logger     *slog.Logger
	loggerHook logging.LoggerHook
	onComplete func(*Report)

	metricsRegistry metrics.Registry
	metricsOnce     sync.Once
	metrics         *sequencerMetrics
	metricsErr      error
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLogger sets the base logger. Each task gets a child logger tagged with its name.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) {
		s.base = logger
	}
}

// WithLoggerHook sets a hook used to derive task loggers, e.g. to capture them for a run report.
func WithLoggerHook(hook logging.LoggerHook) Option {
	return func(s *Sequencer) {
		s.loggerHook = hook
	}
}

// WithMetrics records task outcomes into reg.
func WithMetrics(reg metrics.Registry) Option {
	return func(s *Sequencer) {
		s.metricsRegistry = reg
	}
}

// WithOnComplete sets a callback invoked once after a run in which every task succeeded.
func WithOnComplete(fn func(*Report)) Option {
	return func(s *Sequencer) {
		s.onComplete = fn
	}
}

// NewSequencer creates a Sequencer for the given registry and run context.
func NewSequencer(reg *Registry, rc *config.RunContext, opts ...Option) *Sequencer {
	s := &Sequencer{
		registry: reg,
		rc:       rc,
		base:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.base.With("run_id", rc.RunID(), "env", rc.Environment())
	return s
}

// Run executes the named tasks and sequences in order.
//
// Unknown names fail the run before anything happens. Every task's Init runs
// before the first Execute. Tasks then execute strictly one after another;
// the first failure stops the run and the remaining tasks are marked Skipped.
// The returned Report is populated in every case where resolution succeeded.
func (s *Sequencer) Run(ctx context.Context, names []string) (*Report, error) {
	tasks, err := s.registry.Resolve(names...)
	if err != nil {
		s.logger.Error("cannot start run", "error", err)
		return nil, err
	}

	report := &Report{
		RunID:       s.rc.RunID(),
		Environment: s.rc.Environment(),
		Started:     time.Now(),
		Results:     make([]*Result, len(tasks)),
	}
	for i, t := range tasks {
		report.Results[i] = &Result{Task: t.Name(), State: NotStarted}
	}
	defer func() {
		report.Duration = time.Since(report.Started)
	}()

	if len(tasks) == 0 {
		s.logger.Info("no tasks to run")
		s.complete(report)
		return report, nil
	}

	m, err := s.instruments()
	if err != nil {
		return report, err
	}

	s.logger.Info("starting run", "tasks", len(tasks))

	loggers := make([]*slog.Logger, len(tasks))
	for i, t := range tasks {
		loggers[i] = s.taskLogger(t)
		loggers[i].Debug("initializing task")
		if err := t.Init(s.rc); err != nil {
			loggers[i].Error("task initialization failed", "error", err)
			report.Results[i].Error = err
			m.observeRun(s.rc.Environment(), false)
			return report, fmt.Errorf("task %s initialization failed: %w", t.Name(), err)
		}
	}

	for _, res := range report.Results {
		res.State = Pending
	}

	for i, t := range tasks {
		res := report.Results[i]
		logger := loggers[i]

		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled before task started", "error", err)
			s.skipFrom(report, i, fmt.Errorf("cancelled: %w", err))
			m.observeRun(s.rc.Environment(), false)
			return report, fmt.Errorf("run cancelled before %s: %w", t.Name(), err)
		}

		res.State = Running
		logger.Debug("executing task", "mode", t.Mode().String())
		started := time.Now()
		err := t.Execute(logging.WithLogger(ctx, logger), s.rc)
		res.Duration = time.Since(started)
		res.State = Completed
		res.Error = err
		m.observeTask(res)

		if err != nil {
			logger.Error("task failed", "error", err, "duration", res.Duration)
			s.skipFrom(report, i+1, fmt.Errorf("%s failed", t.Name()))
			m.observeRun(s.rc.Environment(), false)
			return report, fmt.Errorf("task %s failed: %w", t.Name(), err)
		}
		logger.Debug("task completed", "duration", res.Duration)
	}

	m.observeRun(s.rc.Environment(), true)
	s.logger.Info("run completed successfully", "tasks", len(tasks))
	s.complete(report)
	return report, nil
}

// Validate resolves names and runs every task's Init without executing
// anything. It reports the first failure.
func (s *Sequencer) Validate(names []string) error {
	tasks, err := s.registry.Resolve(names...)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if err := t.Init(s.rc); err != nil {
			return fmt.Errorf("task %s initialization failed: %w", t.Name(), err)
		}
	}
	return nil
}

func (s *Sequencer) complete(report *Report) {
	if s.onComplete != nil {
		s.onComplete(report)
	}
}

// skipFrom marks every task from index i onwards as Skipped.
func (s *Sequencer) skipFrom(report *Report, i int, reason error) {
	for _, res := range report.Results[i:] {
		res.State = Skipped
		res.Error = reason
	}
}

// taskLogger applies the hook before adding attributes so captured entries carry them.
func (s *Sequencer) taskLogger(t Task) *slog.Logger {
	logger := s.base
	if s.loggerHook != nil {
		logger = s.loggerHook.LoggerForTask(logger, t.Name())
	}
	return logger.With("run_id", s.rc.RunID(), "env", s.rc.Environment(), "task", t.Name())
}

// instruments creates the metrics once per Sequencer. A nil result disables recording.
func (s *Sequencer) instruments() (*sequencerMetrics, error) {
	if s.metricsRegistry == nil {
		return nil, nil
	}
	s.metricsOnce.Do(func() {
		s.metrics, s.metricsErr = newSequencerMetrics(s.metricsRegistry)
	})
	return s.metrics, s.metricsErr
}
