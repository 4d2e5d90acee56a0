package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/nomis52/solrsetup/config"
)

var (
	// ErrUnknownTask is returned when a run names a task or sequence that is not registered.
	ErrUnknownTask = errors.New("unknown task")
	// ErrDuplicateTask is returned when a different definition is registered under a taken name.
	ErrDuplicateTask = errors.New("duplicate task")
)

// Mode selects how a task waits for the program it launches.
type Mode int

const (
	// Blocking runs the program with its output forwarded to the console.
	Blocking Mode = iota
	// Async starts the program and streams its output through the task logger.
	Async
)

func (m Mode) String() string {
	switch m {
	case Blocking:
		return "blocking"
	case Async:
		return "async"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Task is a named unit of provisioning work.
//
// Init is called for every task in a run before any task executes. Use it to
// check that the active environment carries the fields the task needs.
// Execute does the work; a nil return means success. The logger for the task
// is available through logging.FromContext(ctx).
type Task interface {
	Name() string
	Mode() Mode
	Init(rc *config.RunContext) error
	Execute(ctx context.Context, rc *config.RunContext) error
}

// Definer is implemented by tasks that can describe their definition as a
// comparable value. Registering two tasks with equal definitions under one
// name is a no-op.
type Definer interface {
	Definition() any
}

// UnknownTaskError names a task or sequence missing from the registry.
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task %q", e.Name)
}

func (e *UnknownTaskError) Is(target error) bool {
	return target == ErrUnknownTask
}

// DuplicateTaskError names a task registered twice with different definitions.
type DuplicateTaskError struct {
	Name string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("task %q is already registered with a different definition", e.Name)
}

func (e *DuplicateTaskError) Is(target error) bool {
	return target == ErrDuplicateTask
}
