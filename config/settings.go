package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// SettingsFile is the optional settings file looked up in the working directory.
const SettingsFile = "solrsetup.yaml"

const (
	// Default script settings
	defaultScriptsDir = "powershell-scripts"
	defaultShell      = "powershell.exe"

	// Default monitoring settings
	defaultMetricsPrefix = "solrsetup"
	defaultJobName       = "solrsetup"

	// Default logging settings
	defaultLogLevel  = "info"
	defaultLogFormat = "console"
	defaultLogOutput = "stdout"
)

var defaultShellArgs = []string{"-NoProfile", "-ExecutionPolicy", "Bypass", "-File"}

// Settings configures the tool itself, as opposed to the solution it provisions.
type Settings struct {
	Scripts    ScriptsConfig    `yaml:"scripts"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	History    HistoryConfig    `yaml:"history"`
}

// ScriptsConfig locates the provisioning scripts and the interpreter that runs them.
type ScriptsConfig struct {
	// Dir holds the .ps1 files. Relative paths resolve against the working directory.
	Dir string `yaml:"dir"`

	// Shell is the executable each script is passed to.
	Shell string `yaml:"shell"`

	// ShellArgs precede the script path on the command line.
	ShellArgs []string `yaml:"shell_args"`
}

// MonitoringConfig holds metrics settings. Both sinks are optional.
type MonitoringConfig struct {
	VictoriaMetricsURL string `yaml:"victoriametrics_url"`
	MetricsPrefix      string `yaml:"metrics_prefix"`
	JobName            string `yaml:"jobname"`

	// Textfile is a path for the node exporter textfile collector.
	Textfile string `yaml:"textfile"`
}

// HistoryConfig enables the on-disk run history. An empty Dir disables it.
type HistoryConfig struct {
	Dir     string `yaml:"dir"`
	MaxRuns int    `yaml:"max_runs"`
}

// LoggingConfig defines logging behavior settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	AddSource bool   `yaml:"add_source"`
}

// SetDefaults sets reasonable default values for optional fields
func (s *Settings) SetDefaults() {
	if s.Scripts.Dir == "" {
		s.Scripts.Dir = defaultScriptsDir
	}
	if s.Scripts.Shell == "" {
		s.Scripts.Shell = defaultShell
	}
	if s.Scripts.ShellArgs == nil {
		s.Scripts.ShellArgs = slices.Clone(defaultShellArgs)
	}
	if s.Monitoring.MetricsPrefix == "" {
		s.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if s.Monitoring.JobName == "" {
		s.Monitoring.JobName = defaultJobName
	}
	if s.Logging.Level == "" {
		s.Logging.Level = defaultLogLevel
	}
	if s.Logging.Format == "" {
		s.Logging.Format = defaultLogFormat
	}
	if s.Logging.Output == "" {
		s.Logging.Output = defaultLogOutput
	}
}

// Validate performs basic validation on the settings
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.Scripts.Shell) == "" {
		return fmt.Errorf("scripts shell is required")
	}
	if url := s.Monitoring.VictoriaMetricsURL; url != "" &&
		!strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("victoriametrics_url must be an http(s) URL, got %q", url)
	}
	if s.History.MaxRuns < 0 {
		return fmt.Errorf("history max_runs must not be negative")
	}
	return nil
}

// ScriptPath returns the absolute path of a script relative to workDir.
func (s *Settings) ScriptPath(workDir, script string) string {
	return filepath.Join(s.ScriptsDir(workDir), script)
}

// ScriptsDir returns the absolute scripts directory relative to workDir.
func (s *Settings) ScriptsDir(workDir string) string {
	if filepath.IsAbs(s.Scripts.Dir) {
		return s.Scripts.Dir
	}
	return filepath.Join(workDir, s.Scripts.Dir)
}

// HistoryDir returns the absolute history directory, or "" when history is disabled.
func (s *Settings) HistoryDir(workDir string) string {
	if s.History.Dir == "" || filepath.IsAbs(s.History.Dir) {
		return s.History.Dir
	}
	return filepath.Join(workDir, s.History.Dir)
}

// DefaultSettings returns settings with every default applied.
func DefaultSettings() Settings {
	var s Settings
	s.SetDefaults()
	return s
}

// LoadSettings reads the YAML settings file at path. When optional is true a
// missing file yields the defaults.
func LoadSettings(path string, optional bool) (Settings, error) {
	var s Settings
	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return s, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return s, fmt.Errorf("decoding %s: %w", path, err)
	}
	s.SetDefaults()
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}
