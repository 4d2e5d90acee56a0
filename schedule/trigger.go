// Package schedule runs task sequences on a cron schedule.
//
// A Trigger wraps a Runnable and executes it at every tick of a cron
// expression until its context is cancelled. Runs never overlap and a failed
// run stops the trigger: there is no retry.
//
// Example usage:
//
//	trigger, err := schedule.NewTrigger("0 2 * * *", runnable, logger)
//	if err != nil {
//	    return err
//	}
//	err = trigger.Run(ctx) // Blocks until ctx is cancelled or a run fails
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidCronSpec is returned when the cron specification cannot be parsed.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// Runnable is implemented by anything that can be triggered by the scheduler.
type Runnable interface {
	Run(ctx context.Context) error
}

// RunnableFunc adapts a function to Runnable.
type RunnableFunc func(ctx context.Context) error

func (f RunnableFunc) Run(ctx context.Context) error { return f(ctx) }

// Trigger executes a Runnable according to a cron schedule.
type Trigger struct {
	spec     string
	schedule cron.Schedule
	runnable Runnable
	logger   *slog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// Option configures a Trigger.
type Option func(*Trigger)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(t *Trigger) {
		t.now = now
		t.after = after
	}
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NewTrigger creates a Trigger for spec. The spec follows standard cron
// format (5 fields: minute, hour, day, month, weekday) or a descriptor such
// as @daily. Returns ErrInvalidCronSpec if the specification cannot be parsed.
func NewTrigger(spec string, runnable Runnable, logger *slog.Logger, opts ...Option) (*Trigger, error) {
	if runnable == nil {
		return nil, fmt.Errorf("runnable is required")
	}
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}

	t := &Trigger{
		spec:     spec,
		schedule: schedule,
		runnable: runnable,
		logger:   logger.With("component", "schedule", "cron", spec),
		now:      time.Now,
		after:    time.After,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// NextRun returns the next scheduled run time from now.
func (t *Trigger) NextRun() time.Time {
	return t.schedule.Next(t.now())
}

// Run blocks, executing the runnable at each tick. It returns nil when ctx is
// cancelled and the runnable's error as soon as one run fails.
func (t *Trigger) Run(ctx context.Context) error {
	t.logger.Info("schedule started", "next_run", t.NextRun())
	for runs := 1; ; runs++ {
		if ctx.Err() != nil {
			t.logger.Info("schedule shutting down", "runs", runs-1)
			return nil
		}
		nextRun := t.NextRun()
		wait := nextRun.Sub(t.now())

		t.logger.Debug("waiting for next scheduled run",
			"next_run", nextRun,
			"wait_duration", wait,
		)

		select {
		case <-ctx.Done():
			t.logger.Info("schedule shutting down", "runs", runs-1)
			return nil
		case <-t.after(wait):
		}

		t.logger.Info("starting scheduled run", "run", runs)
		if err := t.runnable.Run(ctx); err != nil {
			t.logger.Error("scheduled run failed, stopping schedule", "run", runs, "error", err)
			return fmt.Errorf("scheduled run %d: %w", runs, err)
		}
		t.logger.Info("scheduled run completed successfully", "run", runs)
	}
}
