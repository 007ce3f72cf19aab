// Package freshness provides the version information for freshness.
package freshness

// Version is the current version of freshness.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
