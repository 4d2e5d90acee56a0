// Package process runs the external programs that provisioning tasks are
// made of. A Runner either waits for a program with its output forwarded to
// the console, or starts it and hands back an Execution that completes when
// the program exits.
//
// A nonzero exit status is a normal Result, not an error. Errors are reserved
// for programs that could not be started or waited for. Started programs are
// never timed out or cancelled; the context is only checked before start.
package process

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrStart is returned when a program cannot be launched.
var ErrStart = errors.New("failed to start process")

// Command describes one program invocation.
type Command struct {
	Executable string
	Args       []string
	// Dir is the working directory. Empty means the orchestrator's own.
	Dir string
}

// String renders the command line for logging.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quoteArg(c.Executable))
	for _, a := range c.Args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

// Result is the outcome of a program that ran to completion.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Success reports whether the program exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner launches external programs.
type Runner interface {
	// RunBlocking runs cmd to completion with its output forwarded to the
	// orchestrator's stdout and stderr.
	RunBlocking(ctx context.Context, cmd Command) (Result, error)

	// Start launches cmd and returns immediately. Output is logged line by
	// line to the logger carried by ctx.
	Start(ctx context.Context, cmd Command) (*Execution, error)
}

// Execution is a started program. It completes exactly once.
type Execution struct {
	cmd     Command
	started time.Time
	done    chan struct{}
	once    sync.Once
	result  Result
	err     error
}

func newExecution(cmd Command) *Execution {
	return &Execution{
		cmd:     cmd,
		started: time.Now(),
		done:    make(chan struct{}),
	}
}

// finish records the outcome. Only the first call has any effect.
func (e *Execution) finish(exitCode int, err error) {
	e.once.Do(func() {
		e.result = Result{ExitCode: exitCode, Duration: time.Since(e.started)}
		e.err = err
		close(e.done)
	})
}

// Command returns the command this execution was started with.
func (e *Execution) Command() Command { return e.cmd }

// Done is closed when the program has exited.
func (e *Execution) Done() <-chan struct{} { return e.done }

// Wait blocks until the program exits and returns its result.
func (e *Execution) Wait() (Result, error) {
	<-e.done
	return e.result, e.err
}

// RunAsync starts cmd on r and calls onComplete exactly once when it exits,
// whatever the exit status. onComplete is not called if the start fails.
func RunAsync(ctx context.Context, r Runner, cmd Command, onComplete func(Result, error)) (*Execution, error) {
	execution, err := r.Start(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if onComplete != nil {
		go func() {
			onComplete(execution.Wait())
		}()
	}
	return execution, nil
}

// Finished returns an Execution that has already completed with res and err.
func Finished(cmd Command, res Result, err error) *Execution {
	e := &Execution{cmd: cmd, done: make(chan struct{}), result: res, err: err}
	e.once.Do(func() { close(e.done) })
	return e
}
