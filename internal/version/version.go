// Package version records build metadata injected at link time.
package version

var (
	// Version is the release tag, set via -ldflags.
	Version = "dev"

	// Commit is the git commit the binary was built from.
	Commit = "none"
)

// String returns the human-readable version line.
func String() string {
	return Version + " (" + Commit + ")"
}
