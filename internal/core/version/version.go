// Package version provides information about the build version of the updater
package version

import "fmt"

// BuildInfo holds version information about the build
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information
// version, commit and date are set with -ldflags "-X 'sentinel/internal/core/version.version=v0.1.0'"
func Info() BuildInfo {
	return BuildInfo{
		Service: "sentinel-updater",
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// String renders the build info for --version
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", b.Service, b.Version, b.Commit, b.Date)
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
