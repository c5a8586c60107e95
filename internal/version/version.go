// Package version holds build metadata, stamped at link time with
// -ldflags "-X github.com/banshee-data/motion.report/internal/version.Version=...".
package version

import "fmt"

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String formats the build metadata for -version output and session logs.
func String() string {
	return fmt.Sprintf("motion.report %s (%s, built %s)", Version, GitSHA, BuildTime)
}
