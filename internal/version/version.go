package version

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version of the qbsgo-release tool itself. Overridden via ldflags.
	Version = "dev"
	// Commit is the git revision. Falls back to the VCS info recorded by the Go toolchain.
	Commit = ""
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// revision resolves the commit hash, preferring the ldflags value.
func revision() string {
	if Commit != "" {
		return Commit
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}

	return "none"
}

// Short returns only the tool version.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("qbsgo-release %s (commit %s, built at %s)", Version, revision(), BuildTime)
}
