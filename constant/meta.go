// Package constant defines immutable application-level identifiers and build metadata.
package constant

const (
	// Tandem is the canonical application identifier used for filesystem paths and CLI branding.
	Tandem = "tandem"

	// Version is the current application semantic version string.
	Version = "0.1.0"
)

// Build metadata, overridden at link time with -ldflags "-X".
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)

// Platforms with a known mpv install command.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)
