package common

import (
	"fmt"
	"runtime"
)

const (
	ProjectName    = "Backtester"
	ProjectVersion = "1.0.0"

	// Build information - normally set during build via -ldflags
	BuildDate   = "dev"
	BuildCommit = "dev"
)

// VersionInfo contains version and build information
type VersionInfo struct {
	ProjectName  string `json:"project_name"`
	Version      string `json:"version"`
	BuildDate    string `json:"build_date"`
	BuildCommit  string `json:"build_commit"`
	GoVersion    string `json:"go_version"`
	Architecture string `json:"architecture"`
}

// GetVersionInfo returns complete version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		ProjectName:  ProjectName,
		Version:      ProjectVersion,
		BuildDate:    BuildDate,
		BuildCommit:  BuildCommit,
		GoVersion:    runtime.Version(),
		Architecture: runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// PrintVersion prints version information to stdout.
func PrintVersion() {
	v := GetVersionInfo()
	fmt.Printf("%s %s (%s, %s)\n", v.ProjectName, v.Version, v.GoVersion, v.Architecture)
}
