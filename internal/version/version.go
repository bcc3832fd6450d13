// Package version holds build-time version information so every command
// reports the same answer.
package version

// Overridden at build time:
// go build -ldflags "-X .../internal/version.Version=1.2.0 -X .../internal/version.Commit=abc123"
var (
	// Version is the semantic version of the analyzer
	Version = "1.0.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Info returns a short version string for log lines.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns the multi-line form for the version command.
func Full() string {
	return "pasdeps version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}
