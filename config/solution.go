package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"golang.org/x/mod/semver"
)

// SolutionFile is the fixed name of the solution document inside the working directory.
const SolutionFile = "solution-config.json"

// Solution is the root solution configuration document.
type Solution struct {
	PlatformVersion        string                 `json:"platformVersion"`
	FrontendBuilder        string                 `json:"frontendBuilder"`
	PackageSource          PackageSource          `json:"packageSource"`
	ConfigurationTransform ConfigurationTransform `json:"configurationTransform"`
	Environments           []EnvironmentProfile   `json:"environments"`

	// Legacy document keys, folded into the fields above by normalize.
	LegacyConfigs  []EnvironmentProfile `json:"configs,omitempty"`
	LegacySitecore *legacySitecore      `json:"sitecore,omitempty"`
}

type legacySitecore struct {
	Version string `json:"version"`
}

// PackageSource locates the deployable package.
type PackageSource struct {
	Location    string `json:"location"`
	PackageName string `json:"packageName"`
}

// ConfigurationTransform holds the config transform rules.
type ConfigurationTransform struct {
	AlwaysApplyName       string `json:"alwaysApplyName"`
	LegacyAlwaysApplyName string `json:"AlwaysApplyName,omitempty"`
}

// EnvironmentProfile is one named deployment target.
type EnvironmentProfile struct {
	Name                string `json:"name"`
	WebsiteRoot         string `json:"websiteRoot"`
	SolrExtractLocation string `json:"solrExtractLocation"`
	SolrVersion         string `json:"solrVersion,omitempty"`

	// Solr cloud topology. The three fields are set together or not at all.
	AsSolrCloud       bool   `json:"asSolrCloud,omitempty"`
	SolrCloudHosts    string `json:"solrCloudHosts,omitempty"`
	SolrCloudThisHost string `json:"solrCloudThisHost,omitempty"`

	// Remote, when set, runs the provisioning scripts on another host over SSH.
	Remote *RemoteConfig `json:"remote,omitempty"`
}

// RemoteConfig describes an SSH target for script execution.
type RemoteConfig struct {
	Host           string `json:"host"`
	User           string `json:"user"`
	PrivateKeyFile string `json:"privateKeyFile"`
	// KnownHostsFile verifies the host key. Without it any host key is accepted.
	KnownHostsFile string `json:"knownHostsFile,omitempty"`

	// ScriptsDir is where the provisioning scripts live on the remote host.
	ScriptsDir string `json:"scriptsDir,omitempty"`
}

// SolrCloudConfigured reports whether the full Solr cloud trio is present.
func (p EnvironmentProfile) SolrCloudConfigured() bool {
	return p.AsSolrCloud && p.SolrCloudHosts != "" && p.SolrCloudThisHost != ""
}

// solrCloudPartial reports whether some, but not all, of the Solr cloud fields are set.
func (p EnvironmentProfile) solrCloudPartial() bool {
	set := p.AsSolrCloud || p.SolrCloudHosts != "" || p.SolrCloudThisHost != ""
	return set && !p.SolrCloudConfigured()
}

// LoadSolution reads and validates dir/solution-config.json.
func LoadSolution(dir string) (*Solution, error) {
	path := filepath.Join(dir, SolutionFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseSolution(data)
}

// ParseSolution decodes and validates a solution document.
func ParseSolution(data []byte) (*Solution, error) {
	var sol Solution
	if err := json.Unmarshal(data, &sol); err != nil {
		return nil, errors.Join(ErrConfigParse, err)
	}
	if err := sol.normalize(); err != nil {
		return nil, err
	}
	if err := sol.Validate(); err != nil {
		return nil, err
	}
	return &sol, nil
}

// normalize folds the legacy keys into the current ones.
func (s *Solution) normalize() error {
	if len(s.LegacyConfigs) > 0 {
		if len(s.Environments) > 0 && !reflect.DeepEqual(s.Environments, s.LegacyConfigs) {
			return validationError("both environments and configs are set with different content")
		}
		s.Environments = s.LegacyConfigs
		s.LegacyConfigs = nil
	}
	if s.LegacySitecore != nil {
		v := s.LegacySitecore.Version
		if s.PlatformVersion != "" && v != "" && s.PlatformVersion != v {
			return validationError("platformVersion %q conflicts with sitecore.version %q", s.PlatformVersion, v)
		}
		if s.PlatformVersion == "" {
			s.PlatformVersion = v
		}
		s.LegacySitecore = nil
	}
	ct := &s.ConfigurationTransform
	if ct.LegacyAlwaysApplyName != "" {
		if ct.AlwaysApplyName != "" && ct.AlwaysApplyName != ct.LegacyAlwaysApplyName {
			return validationError("alwaysApplyName %q conflicts with AlwaysApplyName %q", ct.AlwaysApplyName, ct.LegacyAlwaysApplyName)
		}
		ct.AlwaysApplyName = ct.LegacyAlwaysApplyName
		ct.LegacyAlwaysApplyName = ""
	}
	return nil
}

// Validate checks required fields and cross-field invariants.
func (s *Solution) Validate() error {
	if s.PackageSource.Location == "" {
		return validationError("packageSource.location is required")
	}
	if s.PackageSource.PackageName == "" {
		return validationError("packageSource.packageName is required")
	}
	if len(s.Environments) == 0 {
		return validationError("at least one environment is required")
	}
	if s.PlatformVersion != "" && !validVersion(s.PlatformVersion) {
		return validationError("platformVersion %q is not a semantic version", s.PlatformVersion)
	}

	seen := make(map[string]bool, len(s.Environments))
	for i, env := range s.Environments {
		if env.Name == "" {
			return validationError("environments[%d]: name is required", i)
		}
		if seen[env.Name] {
			return validationError("environment %q is declared more than once", env.Name)
		}
		seen[env.Name] = true

		if env.SolrVersion != "" && !validVersion(env.SolrVersion) {
			return validationError("environment %q: solrVersion %q is not a semantic version", env.Name, env.SolrVersion)
		}
		if env.solrCloudPartial() {
			return validationError("environment %q: asSolrCloud, solrCloudHosts and solrCloudThisHost must be set together", env.Name)
		}
		if r := env.Remote; r != nil && (r.Host == "" || r.User == "") {
			return validationError("environment %q: remote.host and remote.user are required", env.Name)
		}
	}
	return nil
}

// EnvironmentNames returns the profile names in declaration order.
func (s *Solution) EnvironmentNames() []string {
	names := make([]string, len(s.Environments))
	for i, env := range s.Environments {
		names[i] = env.Name
	}
	return names
}

func validVersion(v string) bool {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.IsValid(v)
}
