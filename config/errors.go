package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNotFound is returned when solution-config.json does not exist.
	ErrConfigNotFound = errors.New("solution configuration not found")

	// ErrConfigParse is returned when the solution document is not well-formed JSON.
	ErrConfigParse = errors.New("solution configuration is not valid JSON")

	// ErrConfigValidation is returned when required fields are missing or inconsistent.
	ErrConfigValidation = errors.New("invalid solution configuration")

	// ErrUnknownEnvironment is returned when no environment profile matches the requested name.
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrMissingConfigField is returned when a task needs a profile field that is not set.
	ErrMissingConfigField = errors.New("missing configuration field")
)

// UnknownEnvironmentError records the environment name that could not be resolved.
type UnknownEnvironmentError struct {
	Requested string
	Available []string
}

func (e *UnknownEnvironmentError) Error() string {
	return fmt.Sprintf("cannot find environment configuration for %q (available: %v)", e.Requested, e.Available)
}

func (e *UnknownEnvironmentError) Is(target error) bool {
	return target == ErrUnknownEnvironment
}

// MissingFieldError names the profile field a task required.
type MissingFieldError struct {
	Environment string
	Field       string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("environment %q: %s is required", e.Environment, e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingConfigField
}

// validationError joins ErrConfigValidation with a description of the problem.
func validationError(format string, args ...any) error {
	return errors.Join(ErrConfigValidation, fmt.Errorf(format, args...))
}
