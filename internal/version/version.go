// Package version reports build information for the opmetrics binary.
package version

import (
	"fmt"
	"runtime"
)

// Build-time variables injected via ldflags.
var (
	Release   = "dev"
	GitCommit = "unknown"
)

// Short returns "opmetrics/<release>".
func Short() string {
	return "opmetrics/" + Release
}

// Full returns the version string in the format "opmetrics/release (commit)".
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Short(), GitCommit)
}

// FullWithPlatform appends the platform and Go toolchain.
func FullWithPlatform() string {
	return fmt.Sprintf("%s (commit: %s, %s/%s, %s)",
		Short(), GitCommit, runtime.GOOS, runtime.GOARCH, runtime.Version())
}
