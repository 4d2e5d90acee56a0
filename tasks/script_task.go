package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/nomis52/solrsetup/config"
	"github.com/nomis52/solrsetup/logging"
	"github.com/nomis52/solrsetup/process"
	"github.com/nomis52/solrsetup/workflow"
)

// ArgsFunc builds the script arguments from the active environment. It
// returns a config.MissingFieldError when a required field is empty.
type ArgsFunc func(rc *config.RunContext) ([]string, error)

// ScriptDefinition describes a task that runs one PowerShell script.
type ScriptDefinition struct {
	Name   string
	Script string
	Mode   workflow.Mode
	Args   ArgsFunc

	// Announce, when set, produces the message logged before the script starts.
	Announce func(rc *config.RunContext) string
	// Succeeded and Failed are logged after the script exits.
	Succeeded string
	Failed    string
}

// ScriptTask is a workflow.Task that runs a provisioning script through a process.Runner.
type ScriptTask struct {
	def      ScriptDefinition
	runner   process.Runner
	settings config.Settings
}

// NewScriptTask creates a task from def.
func NewScriptTask(def ScriptDefinition, runner process.Runner, settings config.Settings) *ScriptTask {
	return &ScriptTask{
		def:      def,
		runner:   runner,
		settings: settings,
	}
}

func (t *ScriptTask) Name() string        { return t.def.Name }
func (t *ScriptTask) Mode() workflow.Mode { return t.def.Mode }

// scriptIdentity is the comparable form of a ScriptTask. Functions and the
// runner compare by identity; closures compare by code pointer.
type scriptIdentity struct {
	Name, Script      string
	Mode              workflow.Mode
	Args, Announce    uintptr
	Succeeded, Failed string
	Runner            string
	Settings          config.Settings
}

// Definition identifies the task for duplicate detection. Two tasks are the
// same definition only if they run the same script the same way.
func (t *ScriptTask) Definition() any {
	return scriptIdentity{
		Name:      t.def.Name,
		Script:    t.def.Script,
		Mode:      t.def.Mode,
		Args:      pointerOf(t.def.Args),
		Announce:  pointerOf(t.def.Announce),
		Succeeded: t.def.Succeeded,
		Failed:    t.def.Failed,
		Runner:    fmt.Sprintf("%T@%x", t.runner, pointerOf(t.runner)),
		Settings:  t.settings,
	}
}

// pointerOf returns the address behind v for reference kinds and 0 otherwise.
func pointerOf(v any) uintptr {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Map, reflect.Chan, reflect.Slice, reflect.UnsafePointer:
		return rv.Pointer()
	default:
		return 0
	}
}

// Init checks that the active environment has every field the script needs.
func (t *ScriptTask) Init(rc *config.RunContext) error {
	if t.runner == nil {
		return fmt.Errorf("%s: no process runner", t.def.Name)
	}
	if _, err := t.def.Args(rc); err != nil {
		return err
	}
	return nil
}

// Execute runs the script and maps a nonzero exit status to an ExternalProcessError.
func (t *ScriptTask) Execute(ctx context.Context, rc *config.RunContext) error {
	logger := logging.FromContext(ctx)

	args, err := t.def.Args(rc)
	if err != nil {
		return err
	}
	cmd := t.Command(rc, args)

	if t.def.Announce != nil {
		logger.Info(t.def.Announce(rc))
	}
	logger.Info("running powershell script", "script", t.def.Script, "dir", cmd.Dir)
	logger.Debug("command line", "command", cmd.String())

	res, err := t.run(ctx, logger, cmd)
	if err != nil {
		return fmt.Errorf("%s: %w", t.def.Name, err)
	}
	if !res.Success() {
		logger.Error(t.def.Failed, "exit_code", res.ExitCode, "duration", res.Duration)
		return &ExternalProcessError{Task: t.def.Name, Script: t.def.Script, ExitCode: res.ExitCode}
	}

	logger.Info(t.def.Succeeded, "duration", res.Duration)
	return nil
}

func (t *ScriptTask) run(ctx context.Context, logger *slog.Logger, cmd process.Command) (process.Result, error) {
	if t.def.Mode == workflow.Blocking {
		return t.runner.RunBlocking(ctx, cmd)
	}
	execution, err := process.RunAsync(ctx, t.runner, cmd, func(res process.Result, err error) {
		logger.Debug("powershell done", "script", t.def.Script, "exit_code", res.ExitCode)
	})
	if err != nil {
		return process.Result{}, err
	}
	return execution.Wait()
}

// Command composes the shell invocation. Scripts run from their own
// directory, on the remote host when the environment declares one.
func (t *ScriptTask) Command(rc *config.RunContext, args []string) process.Command {
	dir := t.settings.ScriptsDir(rc.WorkDir())
	script := t.settings.ScriptPath(rc.WorkDir(), t.def.Script)
	if remote := rc.Profile().Remote; remote != nil {
		dir = t.settings.Scripts.Dir
		if remote.ScriptsDir != "" {
			dir = remote.ScriptsDir
		}
		script = joinRemotePath(dir, t.def.Script)
	}

	cmdArgs := make([]string, 0, len(t.settings.Scripts.ShellArgs)+1+len(args))
	cmdArgs = append(cmdArgs, t.settings.Scripts.ShellArgs...)
	cmdArgs = append(cmdArgs, script)
	cmdArgs = append(cmdArgs, args...)

	return process.Command{
		Executable: t.settings.Scripts.Shell,
		Args:       cmdArgs,
		Dir:        dir,
	}
}
