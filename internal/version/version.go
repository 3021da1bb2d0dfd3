// Package version reports the batchmon release and build metadata.
package version

import (
	_ "embed"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var versionFile string

// Set at build time:
//
//	go build -ldflags "-X github.com/leefowlercu/batch-monitor/internal/version.gitCommit=$(git rev-parse --short HEAD)"
var (
	gitCommit string
	buildDate string
)

const unknown = "unknown"

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// String formats Info as aligned label/value lines.
func (i Info) String() string {
	return fmt.Sprintf("Version:    %s\nGit Commit: %s\nBuild Date: %s\nGo Version: %s",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion)
}

// Short returns the version with the commit appended when it is known,
// e.g. "0.1.0 (abc1234)".
func (i Info) Short() string {
	if i.GitCommit == "" || i.GitCommit == unknown {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, i.GitCommit)
}

// Get returns the version info of the running binary.
func Get() Info {
	return Info{
		Version:   strings.TrimSpace(versionFile),
		GitCommit: resolveCommit(gitCommit, readBuildInfo),
		BuildDate: orUnknown(buildDate),
		GoVersion: runtime.Version(),
	}
}

// resolveCommit prefers the linker value, then VCS stamps from the module
// build info (go install builds), then "unknown".
func resolveCommit(linked string, vcs func() (string, bool)) string {
	if linked != "" {
		return linked
	}
	revision, dirty := vcs()
	if revision == "" {
		return unknown
	}
	if dirty {
		return revision + "-dirty"
	}
	return revision
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

// readBuildInfo returns the 7 character VCS revision and whether the tree was modified.
func readBuildInfo() (revision string, dirty bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
			if len(revision) > 7 {
				revision = revision[:7]
			}
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}

	return revision, dirty
}
