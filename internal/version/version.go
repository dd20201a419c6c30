// Package version carries build metadata injected with ldflags:
//
//	go build -ldflags "-X git.home.luguber.info/inful/echopipe/internal/version.Version=v0.3.0"
package version

import "fmt"

// Version is the release version of the binary.
var Version = "dev"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version.
func String() string {
	if GitCommit == "unknown" && BuildTime == "unknown" {
		return "echopipe " + Version
	}
	return fmt.Sprintf("echopipe %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
