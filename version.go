package medlock

import "fmt"

// Version of the medlock library
const Version = "0.3.0"

// Build information (set by ldflags during build)
var (
	GitCommit string
	BuildDate string
)

// VersionInfo returns formatted version information
func VersionInfo() string {
	if GitCommit == "" {
		return fmt.Sprintf("medlock v%s", Version)
	}
	return fmt.Sprintf("medlock v%s (commit: %s, built: %s)", Version, shortCommit(GitCommit), BuildDate)
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
