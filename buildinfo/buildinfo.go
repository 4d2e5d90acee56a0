// Package buildinfo provides build-time properties injected via ldflags.
//
//	go build -ldflags "-X github.com/nomis52/solrsetup/buildinfo.version=1.2.0 \
//	    -X github.com/nomis52/solrsetup/buildinfo.gitCommit=$(git rev-parse HEAD)"
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Properties holds build-time properties injected via ldflags.
type Properties struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

// Package-level variables for ldflags injection (unexported).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Get returns the current build properties. When no version was injected the
// module version recorded by the Go toolchain is used, if any.
func Get() Properties {
	p := Properties{
		Version:   version,
		BuildTime: buildTime,
		GitCommit: gitCommit,
		GoVersion: runtime.Version(),
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if p.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			p.Version = info.Main.Version
		}
		if p.GitCommit == "unknown" {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					p.GitCommit = s.Value
				}
			}
		}
	}
	return p
}

// String renders the properties on one line.
func (p Properties) String() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s)", p.Version, p.GitCommit, p.BuildTime, p.GoVersion)
}
