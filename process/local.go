package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/nomis52/solrsetup/logging"
)

// LocalRunner runs programs on this machine.
type LocalRunner struct {
	stdout io.Writer
	stderr io.Writer
}

// LocalOption configures a LocalRunner.
type LocalOption func(*LocalRunner)

// WithOutput sets where RunBlocking forwards program output.
func WithOutput(stdout, stderr io.Writer) LocalOption {
	return func(r *LocalRunner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// NewLocalRunner creates a runner that forwards blocking output to os.Stdout and os.Stderr.
func NewLocalRunner(opts ...LocalOption) *LocalRunner {
	r := &LocalRunner{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunBlocking runs cmd and waits for it to exit.
func (r *LocalRunner) RunBlocking(ctx context.Context, cmd Command) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	c := r.command(cmd)
	c.Stdout = r.stdout
	c.Stderr = r.stderr

	started := time.Now()
	if err := c.Start(); err != nil {
		return Result{}, errors.Join(ErrStart, fmt.Errorf("%s: %w", cmd.Executable, err))
	}
	code, err := exitCode(c.Wait())
	return Result{ExitCode: code, Duration: time.Since(started)}, err
}

// Start launches cmd and streams its output to the logger carried by ctx.
func (r *LocalRunner) Start(ctx context.Context, cmd Command) (*Execution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	stdout := newLineLogger(logger, slog.LevelInfo, "stdout")
	stderr := newLineLogger(logger, slog.LevelWarn, "stderr")

	c := r.command(cmd)
	c.Stdout = stdout
	c.Stderr = stderr

	execution := newExecution(cmd)
	if err := c.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return nil, errors.Join(ErrStart, fmt.Errorf("%s: %w", cmd.Executable, err))
	}
	logger.Debug("process started", "pid", c.Process.Pid, "command", cmd.String())

	go func() {
		waitErr := c.Wait()
		stdout.Close()
		stderr.Close()
		execution.finish(exitCode(waitErr))
	}()
	return execution, nil
}

func (r *LocalRunner) command(cmd Command) *exec.Cmd {
	// exec.Command rather than CommandContext: a started child is never killed.
	c := exec.Command(cmd.Executable, cmd.Args...)
	c.Dir = cmd.Dir
	return c
}

// exitCode splits a Wait error into an exit status and a real failure.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		// Terminated by a signal.
		return 1, nil
	}
	return 1, fmt.Errorf("waiting for process: %w", err)
}
