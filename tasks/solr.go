package tasks

import (
	"fmt"

	"github.com/nomis52/solrsetup/config"
	"github.com/nomis52/solrsetup/process"
	"github.com/nomis52/solrsetup/workflow"
)

// Task and sequence names.
const (
	InstallSolr          = "install-solr"
	SitecoreSwitchToSolr = "sitecore-switch-to-solr"

	SetupSolrSequence    = "setup-solr"
	SwitchToSolrSequence = "switch-to-solr"
)

const (
	installSolrScript     = "install-solr.ps1"
	configureSolrScript   = "configure-sitecore-solr.ps1"
	rebuildIndexesMessage = "Sitecore switch to Solr completed successfully, don't forget to rebuild indexes in Sitecore's control panel"
)

// SetupSolr is the fixed order of the setup-solr sequence.
var SetupSolr = []string{InstallSolr, SitecoreSwitchToSolr}

// InstallSolrDefinition installs Solr into the environment's extract location,
// optionally as a SolrCloud node.
func InstallSolrDefinition() ScriptDefinition {
	return ScriptDefinition{
		Name:   InstallSolr,
		Script: installSolrScript,
		Mode:   workflow.Blocking,
		Args:   installSolrArgs,
		Announce: func(rc *config.RunContext) string {
			if v := rc.Profile().SolrVersion; v != "" {
				return "Installing Solr " + v
			}
			return "Installing Solr"
		},
		Succeeded: "Installing Solr succeeded",
		Failed:    "Installing Solr failed, quitting",
	}
}

// SitecoreSwitchToSolrDefinition points the Sitecore instance at the installed Solr.
func SitecoreSwitchToSolrDefinition() ScriptDefinition {
	return ScriptDefinition{
		Name:   SitecoreSwitchToSolr,
		Script: configureSolrScript,
		Mode:   workflow.Blocking,
		Args:   switchToSolrArgs,
		Announce: func(rc *config.RunContext) string {
			return fmt.Sprintf("Switching Sitecore instance on %s to use Solr", webRoot(rc))
		},
		Succeeded: rebuildIndexesMessage,
		Failed:    "Configuring Solr failed, quitting",
	}
}

func installSolrArgs(rc *config.RunContext) ([]string, error) {
	p := rc.Profile()
	loc, err := rc.Require("solrExtractLocation", p.SolrExtractLocation)
	if err != nil {
		return nil, err
	}

	args := []string{"-solrExtractLocation", loc}
	if p.SolrCloudConfigured() {
		args = append(args,
			"-asSolrCloud",
			"-copySitecoreCores:$false",
			"-solrCloudHosts", p.SolrCloudHosts,
			"-solrCloudThisHost", p.SolrCloudThisHost,
		)
	}
	if p.SolrVersion != "" {
		args = append(args, "-solrVersion", p.SolrVersion)
	}
	return args, nil
}

func switchToSolrArgs(rc *config.RunContext) ([]string, error) {
	p := rc.Profile()
	if _, err := rc.Require("websiteRoot", p.WebsiteRoot); err != nil {
		return nil, err
	}
	loc, err := rc.Require("solrExtractLocation", p.SolrExtractLocation)
	if err != nil {
		return nil, err
	}
	if p.Remote != nil && !isRemoteAbs(p.WebsiteRoot) {
		return nil, fmt.Errorf("%w: environment %q: websiteRoot %q must be absolute when scripts run on %s",
			ErrRelativeRemotePath, rc.Environment(), p.WebsiteRoot, p.Remote.Host)
	}
	return []string{"-webRootPath", webRoot(rc), "-solrExtractLocation", loc}, nil
}

// webRoot resolves websiteRoot against the working directory. Remote profiles
// only reach here with an absolute websiteRoot.
func webRoot(rc *config.RunContext) string {
	return resolvePath(rc.WorkDir(), rc.Profile().WebsiteRoot)
}

// Register adds the built-in tasks and sequences to reg.
func Register(reg *workflow.Registry, runner process.Runner, settings config.Settings) error {
	err := reg.Register(
		NewScriptTask(InstallSolrDefinition(), runner, settings),
		NewScriptTask(SitecoreSwitchToSolrDefinition(), runner, settings),
	)
	if err != nil {
		return fmt.Errorf("registering tasks: %w", err)
	}
	for _, name := range []string{SetupSolrSequence, SwitchToSolrSequence} {
		if err := reg.DefineSequence(name, SetupSolr...); err != nil {
			return fmt.Errorf("defining %s: %w", name, err)
		}
	}
	return nil
}
