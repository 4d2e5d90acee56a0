package tasks

import (
	"errors"
	"fmt"
)

var (
	// ErrExternalProcessFailure is matched by every ExternalProcessError.
	ErrExternalProcessFailure = errors.New("external process failed")

	// ErrRelativeRemotePath is returned when a path the remote host must use
	// is relative to the local working directory.
	ErrRelativeRemotePath = errors.New("relative path on remote host")
)

// ExternalProcessError reports a provisioning script that exited nonzero.
type ExternalProcessError struct {
	Task     string
	Script   string
	ExitCode int
}

func (e *ExternalProcessError) Error() string {
	return fmt.Sprintf("%s: %s exited with status %d", e.Task, e.Script, e.ExitCode)
}

func (e *ExternalProcessError) Is(target error) bool {
	return target == ErrExternalProcessFailure
}
