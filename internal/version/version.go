// Package version carries build identification, set via -ldflags at release
// time.
package version

import "fmt"

var (
	// Version is the semantic version of the build.
	Version = "0.1.0"
	// Commit is the short git commit hash.
	Commit = "dev"
	// BuildDate is the build timestamp in RFC 3339 format.
	BuildDate = "unknown"
)

// Info returns the full version line.
func Info() string {
	return fmt.Sprintf("switchmon %s (commit %s, built %s)", Version, Commit, BuildDate)
}

// Short returns just the version number.
func Short() string {
	return Version
}
