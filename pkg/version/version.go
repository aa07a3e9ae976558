// Package version exposes the build version of fixupem.
package version

// version is set at build time via -ldflags "-X github.com/rshade/fixupem/pkg/version.version=...".
//
//nolint:gochecknoglobals // Overwritten by the linker.
var version = "dev"

// GetVersion returns the build version, or "dev" for local builds.
func GetVersion() string {
	return version
}
