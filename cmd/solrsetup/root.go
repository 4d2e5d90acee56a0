package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	env       string
	cwd       string
	settings  string
	logLevel  string
	logFormat string
	report    string
	dryRun    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "solrsetup [task|sequence]...",
		Short: "Install Solr and switch Sitecore over to it",
		Long: `solrsetup runs the Solr provisioning scripts for the Sitecore solution
described by solution-config.json in the working directory.

Tasks and sequences may be named directly, e.g. "solrsetup install-solr".`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "You need to specify a task.")
				return cmd.Usage()
			}
			return runTasks(cmd, opts, args)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.env, "env", "e", "", `environment profile to use (default "Debug")`)
	flags.StringVar(&opts.cwd, "cwd", "", "working directory holding solution-config.json (default current directory)")
	flags.StringVar(&opts.settings, "settings", "", "settings file (default solrsetup.yaml in the working directory, if present)")
	flags.StringVar(&opts.logLevel, "log-level", "", "override the log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "override the log format: console, json, text")
	flags.StringVar(&opts.report, "report", "", "write a JSON run report with every task's log entries to this path")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "log the script commands instead of running them")

	root.AddCommand(
		newSetupSolrCmd(opts),
		newRunCmd(opts),
		newListCmd(opts),
		newValidateCmd(opts),
		newScheduleCmd(opts),
		newHistoryCmd(opts),
		newVersionCmd(),
	)
	return root
}
