package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nomis52/solrsetup/buildinfo"
	"github.com/nomis52/solrsetup/config"
	"github.com/nomis52/solrsetup/history"
	"github.com/nomis52/solrsetup/process"
	"github.com/nomis52/solrsetup/schedule"
	"github.com/nomis52/solrsetup/tasks"
	"github.com/nomis52/solrsetup/workflow"
)

func newSetupSolrCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     tasks.SetupSolrSequence,
		Aliases: []string{"setup"},
		Short:   "Install Solr and switch Sitecore to use it",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTasks(cmd, opts, []string{tasks.SetupSolrSequence})
		},
	}
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run <task|sequence>...",
		Short: "Run tasks and sequences in the order given",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd, opts, args)
		},
	}
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available tasks and sequences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			reg, err := a.registry(process.NewDryRunner(nil))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Tasks:")
			for _, name := range reg.Names() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			fmt.Fprintln(out, "Sequences:")
			for _, name := range reg.Sequences() {
				members, _ := reg.Sequence(name)
				fmt.Fprintf(out, "  %s: %s\n", name, strings.Join(members, ", "))
			}
			return nil
		},
	}
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [task|sequence]...",
		Short: "Check the configuration without running anything",
		Long: `Loads the settings and solution-config.json, then initializes the named
tasks (default setup-solr) against the selected environment, or against every
environment when --env is not given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 0 {
				args = []string{tasks.SetupSolrSequence}
			}
			sol, err := config.LoadSolution(a.workDir)
			if err != nil {
				return err
			}
			reg, err := a.registry(process.NewDryRunner(nil))
			if err != nil {
				return err
			}

			envs := sol.EnvironmentNames()
			if opts.env != "" {
				envs = []string{opts.env}
			}
			out := cmd.OutOrStdout()
			var errs []error
			for _, env := range envs {
				rc, err := config.NewRunContext(sol, env, a.workDir, newRunID())
				if err == nil {
					err = workflow.NewSequencer(reg, rc, workflow.WithLogger(a.logger.Logger)).Validate(args)
				}
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", env, err)
					errs = append(errs, fmt.Errorf("%s: %w", env, err))
					continue
				}
				fmt.Fprintf(out, "%s: ok\n", env)
			}
			if len(errs) > 0 {
				return errors.Join(errs...)
			}
			fmt.Fprintf(out, "Configuration validation successful: %s\n", a.workDir)
			return nil
		},
	}
}

func newScheduleCmd(opts *options) *cobra.Command {
	var spec string
	cmd := &cobra.Command{
		Use:   "schedule --cron <spec> <task|sequence>...",
		Short: "Run tasks on a cron schedule until interrupted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			// Fail fast on a configuration that cannot run at all.
			p, err := a.pipeline(ctx)
			if err != nil {
				return err
			}
			p.close()

			runnable := schedule.RunnableFunc(func(ctx context.Context) error {
				return a.scheduledRun(ctx, s, args)
			})
			trigger, err := schedule.NewTrigger(spec, runnable, a.logger.Logger)
			if err != nil {
				return err
			}
			return trigger.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&spec, "cron", "", `cron expression, e.g. "0 3 * * *" or "@daily"`)
	_ = cmd.MarkFlagRequired("cron")
	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past runs, or the task logs of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.historyStore()
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("run history is disabled: set history.dir in %s", config.SettingsFile)
			}

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				run, err := store.Get(args[0])
				if err != nil {
					return err
				}
				printRun(out, run)
				return nil
			}

			runs := store.Runs()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("RUN", "ENV", "STARTED", "DURATION", "STATUS")
			for _, run := range runs {
				t.Row(run.ID, run.Environment, run.StartedAt.Local().Format(time.DateTime),
					run.Duration.Round(time.Millisecond).String(), status(run.Success))
			}
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}
}

func printRun(w io.Writer, run history.Run) {
	fmt.Fprintf(w, "Run %s (%s)\n", run.ID, run.Environment)
	fmt.Fprintf(w, "Started: %s  Duration: %s  Status: %s\n",
		run.StartedAt.Local().Format(time.DateTime), run.Duration.Round(time.Millisecond), status(run.Success))
	if run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", run.Error)
	}
	for _, task := range run.Tasks {
		fmt.Fprintf(w, "\n%s: %s (%s)\n", task.Task, task.State, task.Duration.Round(time.Millisecond))
		if task.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", task.Error)
		}
		for _, entry := range task.Logs {
			fmt.Fprintf(w, "  [%s] %s %s\n", entry.Time.Local().Format(time.TimeOnly), entry.Level, entry.Message)
		}
	}
}

func status(success bool) string {
	if success {
		return "succeeded"
	}
	return "failed"
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "solrsetup %s\n", buildinfo.Get())
		},
	}
}
