// Package version holds the build version string.
package version

// Version is the release identifier, replaced at build time via
// -ldflags "-X github.com/sercanarga/pcitree/internal/version.Version=...".
var Version = "dev"
