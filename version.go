package stateset

import "runtime"

// Build information, overridable at link time:
//
//	go build -ldflags "-X github.com/stateset/stateset-go.Version=v1.2.3"
var (
	// Version is the client version reported in the X-Client-Version header.
	Version = "0.5.0"

	// GitCommit is the short commit hash of the build.
	GitCommit = "unknown"

	// BuildDate is the UTC build timestamp.
	BuildDate = "unknown"
)

// BuildInfo describes the running build of the client library.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// GetBuildInfo returns the build information of the client library.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}
