package version

import "fmt"

// These variables are set at build time via ldflags
var (
	Version   = "0.1"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns the full version string.
func String() string {
	return fmt.Sprintf("inactivity-report %s (commit: %s, built: %s)", Version, shortCommit(), BuildTime)
}

func shortCommit() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}
	return Commit
}
