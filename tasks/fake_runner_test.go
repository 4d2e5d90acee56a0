package tasks

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nomis52/solrsetup/config"
	"github.com/nomis52/solrsetup/process"
)

// fakeRunner records commands and answers with per-script exit codes.
type fakeRunner struct {
	mu        sync.Mutex
	commands  []process.Command
	async     int
	exitCodes map[string]int // keyed by script file name
	startErr  error
}

func (f *fakeRunner) record(cmd process.Command) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	for _, a := range cmd.Args {
		if code, ok := f.exitCodes[filepath.Base(a)]; ok {
			return code
		}
	}
	return 0
}

func (f *fakeRunner) RunBlocking(ctx context.Context, cmd process.Command) (process.Result, error) {
	if f.startErr != nil {
		return process.Result{}, f.startErr
	}
	return process.Result{ExitCode: f.record(cmd)}, nil
}

func (f *fakeRunner) Start(ctx context.Context, cmd process.Command) (*process.Execution, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.mu.Lock()
	f.async++
	f.mu.Unlock()
	return process.Finished(cmd, process.Result{ExitCode: f.record(cmd)}, nil), nil
}

func (f *fakeRunner) scripts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.commands {
		out = append(out, scriptOf(c))
	}
	return out
}

// scriptOf returns the script file name of a composed command.
func scriptOf(cmd process.Command) string {
	for _, a := range cmd.Args {
		if filepath.Ext(a) == ".ps1" {
			return filepath.Base(a)
		}
	}
	return ""
}

// scriptArgs returns the arguments after the script path.
func scriptArgs(cmd process.Command) []string {
	for i, a := range cmd.Args {
		if filepath.Ext(a) == ".ps1" {
			return cmd.Args[i+1:]
		}
	}
	return nil
}

func runContext(t *testing.T, doc, env, workDir string) *config.RunContext {
	t.Helper()
	sol, err := config.ParseSolution([]byte(doc))
	require.NoError(t, err)
	rc, err := config.NewRunContext(sol, env, workDir, "run-test")
	require.NoError(t, err)
	return rc
}
