// Package workflow registers provisioning tasks and runs them in sequence.
//
// # Overview
//
// A Registry holds named tasks and named sequences of tasks. A Sequencer
// resolves a list of task and sequence names against the registry and runs
// the resulting tasks one at a time against a single config.RunContext.
//
// # Core Guarantees
//
// Resolution: every name is resolved before anything runs. An unknown name
// fails the run with ErrUnknownTask and no task is initialized.
//
// Fail-fast initialization: Init is called on every task before the first
// Execute. A task that cannot find the environment fields it needs fails the
// run while every task is still NotStarted, so no external program has been
// launched.
//
// Strict ordering: a task starts only after the previous task has returned,
// whatever its Mode. There is no parallelism between tasks.
//
// Stop on first failure: when Execute returns an error the remaining tasks are
// marked Skipped and never execute. Run returns the error.
//
// Completion: the WithOnComplete callback is invoked exactly once per Run and
// only when every task succeeded.
//
// # Task Contract
//
//	type Task interface {
//	    Name() string
//	    Mode() Mode
//	    Init(rc *config.RunContext) error
//	    Execute(ctx context.Context, rc *config.RunContext) error
//	}
//
// Init validates that the active environment carries what the task needs. It
// must not launch anything. Execute does the work. The task logger, tagged
// with run_id, env and task, is available from logging.FromContext(ctx).
//
// # States
//
//	NotStarted -> Pending -> Running -> Completed
//	                  \
//	                   -> Skipped
//
// A Completed task may still have failed; check Result.Error or use
// Result.IsSuccess.
//
// # Usage
//
//	reg := workflow.NewRegistry()
//	if err := tasks.Register(reg, runner, settings); err != nil {
//	    return err
//	}
//	seq := workflow.NewSequencer(reg, rc, workflow.WithLogger(logger))
//	report, err := seq.Run(ctx, []string{"setup-solr"})
package workflow
