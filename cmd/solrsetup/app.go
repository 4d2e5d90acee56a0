package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nomis52/solrsetup/buildinfo"
	"github.com/nomis52/solrsetup/config"
	"github.com/nomis52/solrsetup/history"
	"github.com/nomis52/solrsetup/logging"
	"github.com/nomis52/solrsetup/metrics"
	"github.com/nomis52/solrsetup/process"
	"github.com/nomis52/solrsetup/tasks"
	"github.com/nomis52/solrsetup/workflow"
)

// app is the state shared by the subcommands of one invocation.
type app struct {
	opts     *options
	stdout   io.Writer
	stderr   io.Writer
	workDir  string
	settings config.Settings
	logger   *logging.Logger
}

func newApp(cmd *cobra.Command, opts *options) (*app, error) {
	workDir := opts.cwd
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		workDir = wd
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}

	settingsPath, optional := opts.settings, false
	if settingsPath == "" {
		settingsPath, optional = filepath.Join(workDir, config.SettingsFile), true
	}
	settings, err := config.LoadSettings(settingsPath, optional)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if opts.logLevel != "" {
		settings.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		settings.Logging.Format = opts.logFormat
	}

	logger, err := newLogger(settings.Logging, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &app{
		opts:     opts,
		stdout:   cmd.OutOrStdout(),
		stderr:   cmd.ErrOrStderr(),
		workDir:  workDir,
		settings: settings,
		logger:   logger,
	}, nil
}

// newLogger writes to the command's streams so output can be captured.
func newLogger(cfg config.LoggingConfig, stdout, stderr io.Writer) (*logging.Logger, error) {
	lc := logging.Config{
		Level:     cfg.Level,
		Format:    cfg.Format,
		Output:    cfg.Output,
		AddSource: cfg.AddSource,
	}
	switch cfg.Output {
	case "", "stdout":
		return logging.NewWithWriter(lc, stdout)
	case "stderr":
		return logging.NewWithWriter(lc, stderr)
	default:
		return logging.New(lc)
	}
}

func (a *app) Close() error {
	return a.logger.Close()
}

func newRunID() string {
	return fmt.Sprintf("run-%s-%s", time.Now().UTC().Format("20060102-150405"), uuid.New().String()[:8])
}

// runContext loads the solution and selects the requested environment.
func (a *app) runContext() (*config.RunContext, error) {
	sol, err := config.LoadSolution(a.workDir)
	if err != nil {
		return nil, err
	}
	return config.NewRunContext(sol, a.opts.env, a.workDir, newRunID())
}

// runner picks how scripts are executed for the active profile. The returned
// func releases any connection the runner holds.
func (a *app) runner(ctx context.Context, rc *config.RunContext) (process.Runner, func(), error) {
	if a.opts.dryRun {
		return process.NewDryRunner(nil), func() {}, nil
	}
	if remote := rc.Profile().Remote; remote != nil {
		r, err := process.NewSSHRunner(ctx, *remote)
		if err != nil {
			return nil, nil, err
		}
		a.logger.Info("running scripts remotely", "host", remote.Host, "user", remote.User)
		return r, func() {
			if err := r.Close(); err != nil {
				a.logger.Warn("failed to close ssh connection", "error", err)
			}
		}, nil
	}
	return process.NewLocalRunner(process.WithOutput(a.stdout, a.stderr)), func() {}, nil
}

func (a *app) registry(runner process.Runner) (*workflow.Registry, error) {
	reg := workflow.NewRegistry()
	if err := tasks.Register(reg, runner, a.settings); err != nil {
		return nil, err
	}
	return reg, nil
}

// metricsRegistry returns nil when no metrics sink is configured.
func (a *app) metricsRegistry() (metrics.Flusher, error) {
	var regs []metrics.Registry
	mon := a.settings.Monitoring
	if mon.VictoriaMetricsURL != "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("failed to get hostname: %w", err)
		}
		regs = append(regs, metrics.NewPushRegistry(metrics.PushConfig{
			URL:      mon.VictoriaMetricsURL,
			Prefix:   mon.MetricsPrefix,
			Job:      mon.JobName,
			Instance: hostname,
		}))
	}
	if mon.Textfile != "" {
		regs = append(regs, metrics.NewTextfileRegistry(metrics.TextfileConfig{
			Path:   mon.Textfile,
			Prefix: mon.MetricsPrefix,
		}))
	}
	if len(regs) == 0 {
		return nil, nil
	}
	return metrics.Tee(regs...), nil
}

// historyStore returns nil when history is disabled.
func (a *app) historyStore() (*history.Store, error) {
	dir := a.settings.HistoryDir(a.workDir)
	if dir == "" {
		return nil, nil
	}
	return history.NewStore(dir, a.settings.History.MaxRuns, a.logger.Logger)
}

// sinks outlive a single run: the schedule command shares them across ticks.
type sinks struct {
	metrics metrics.Flusher
	history *history.Store
}

func (a *app) sinks() (*sinks, error) {
	m, err := a.metricsRegistry()
	if err != nil {
		return nil, err
	}
	store, err := a.historyStore()
	if err != nil {
		return nil, err
	}
	return &sinks{metrics: m, history: store}, nil
}

// pipeline is everything needed to run tasks against one environment.
type pipeline struct {
	rc       *config.RunContext
	registry *workflow.Registry
	close    func()
}

// pipeline loads the solution and builds the runner for the active profile.
func (a *app) pipeline(ctx context.Context) (*pipeline, error) {
	rc, err := a.runContext()
	if err != nil {
		return nil, err
	}
	runner, closeRunner, err := a.runner(ctx, rc)
	if err != nil {
		return nil, err
	}
	reg, err := a.registry(runner)
	if err != nil {
		closeRunner()
		return nil, err
	}
	return &pipeline{rc: rc, registry: reg, close: closeRunner}, nil
}

// runOnce sequences names against p, then flushes metrics and records the
// outcome. Failures after the run are logged but do not change its result.
func (a *app) runOnce(ctx context.Context, p *pipeline, s *sinks, names []string) error {
	rc := p.rc
	seqOpts := []workflow.Option{
		workflow.WithLogger(a.logger.Logger),
		workflow.WithOnComplete(func(r *workflow.Report) {
			a.logger.Info("all tasks completed", "run_id", r.RunID, "tasks", len(r.Results))
		}),
	}
	var collector *logging.LogCollector
	if a.opts.report != "" || s.history != nil {
		collector = logging.NewLogCollector()
		seqOpts = append(seqOpts, workflow.WithLoggerHook(logging.NewCapturingLoggerHook(collector)))
	}
	if s.metrics != nil {
		seqOpts = append(seqOpts, workflow.WithMetrics(s.metrics))
	}

	seq := workflow.NewSequencer(p.registry, rc, seqOpts...)
	report, runErr := seq.Run(ctx, names)

	if s.metrics != nil {
		if err := s.metrics.Flush(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("failed to flush metrics", "error", err)
		}
	}
	if s.history != nil && report != nil {
		if err := s.history.Save(history.FromReport(report, runErr, collector)); err != nil {
			a.logger.Warn("failed to save run history", "error", err)
		}
	}
	if a.opts.report != "" {
		if err := collector.WriteReport(a.opts.report, rc.RunID(), rc.Environment(), runErr); err != nil {
			a.logger.Warn("failed to write run report", "error", err)
		}
	}
	return runErr
}

// scheduledRun is one schedule tick. The solution is reloaded and the runner
// rebuilt so edits to either apply to the next run.
func (a *app) scheduledRun(ctx context.Context, s *sinks, names []string) error {
	p, err := a.pipeline(ctx)
	if err != nil {
		return err
	}
	defer p.close()
	return a.runOnce(ctx, p, s, names)
}

// runTasks is the body of every command that executes tasks.
func runTasks(cmd *cobra.Command, opts *options, names []string) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	s, err := a.sinks()
	if err != nil {
		return err
	}
	p, err := a.pipeline(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	props := buildinfo.Get()
	a.logger.Info("solrsetup started",
		"version", props.Version,
		"git_commit", props.GitCommit,
		"work_dir", a.workDir,
		"env", p.rc.Environment(),
		"dry_run", opts.dryRun,
	)
	return a.runOnce(ctx, p, s, names)
}
