package config

import (
	"fmt"
	"path/filepath"
	"slices"
)

// DefaultEnvironment is selected when no environment name is requested.
const DefaultEnvironment = "Debug"

// SelectActive returns the profile named name, or DefaultEnvironment when name is empty.
func (s *Solution) SelectActive(name string) (EnvironmentProfile, error) {
	if name == "" {
		name = DefaultEnvironment
	}
	for _, env := range s.Environments {
		if env.Name == name {
			return env, nil
		}
	}
	return EnvironmentProfile{}, &UnknownEnvironmentError{
		Requested: name,
		Available: s.EnvironmentNames(),
	}
}

// RunContext is the read-only state of one invocation: the solution, the active
// profile and the directory relative paths resolve against.
type RunContext struct {
	solution Solution
	profile  EnvironmentProfile
	workDir  string
	runID    string
}

// NewRunContext selects the active profile and captures it with the working directory.
func NewRunContext(sol *Solution, envName, workDir, runID string) (*RunContext, error) {
	if sol == nil {
		return nil, fmt.Errorf("solution configuration is required")
	}
	profile, err := sol.SelectActive(envName)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolving working directory %q: %w", workDir, err)
	}

	if profile.Remote != nil {
		remote := *profile.Remote
		profile.Remote = &remote
	}
	copied := *sol
	copied.Environments = slices.Clone(sol.Environments)
	return &RunContext{
		solution: copied,
		profile:  profile,
		workDir:  abs,
		runID:    runID,
	}, nil
}

// Profile returns a copy of the active environment profile.
func (rc *RunContext) Profile() EnvironmentProfile {
	p := rc.profile
	if p.Remote != nil {
		remote := *p.Remote
		p.Remote = &remote
	}
	return p
}

// Solution returns a copy of the solution-level settings.
func (rc *RunContext) Solution() Solution {
	s := rc.solution
	s.Environments = slices.Clone(rc.solution.Environments)
	return s
}

// Environment returns the active profile's name.
func (rc *RunContext) Environment() string { return rc.profile.Name }

// WorkDir returns the absolute working directory of the run.
func (rc *RunContext) WorkDir() string { return rc.workDir }

// RunID identifies this invocation in logs and reports.
func (rc *RunContext) RunID() string { return rc.runID }

// Require returns the value of a profile field, or a MissingFieldError when it is empty.
func (rc *RunContext) Require(field, value string) (string, error) {
	if value == "" {
		return "", &MissingFieldError{Environment: rc.profile.Name, Field: field}
	}
	return value, nil
}
