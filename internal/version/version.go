package version

import "fmt"

// Product is the binary name reported by Info.
const Product = "algoctl"

// Build metadata, overridden with -ldflags "-X .../version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns e.g. "algoctl 1.2.0 (abc123, built 2026-01-02)".
func Info() string {
	return fmt.Sprintf("%s %s (%s, built %s)", Product, Version, Commit, BuildDate)
}
