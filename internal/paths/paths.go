// Package paths normalizes file paths for cross-platform comparison.
// Pascal toolchains run mostly on Windows, so comparisons are always
// case-insensitive and forward-slashed.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// RepoRel converts an absolute path to a repo-relative canonical form:
// symlinks resolved, forward slashes, lowercase. Two spellings of the same
// file under the repo root canonicalize identically.
func RepoRel(absolutePath, repoRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}
	rootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = repoRoot
	}
	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return Normalize(rel), nil
}

// IsWithinRepo reports whether a path lies under the repository root.
func IsWithinRepo(path, repoRoot string) bool {
	rel, err := RepoRel(path, repoRoot)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(rel, "..")
}

// Normalize lowercases a path and converts separators to forward slashes.
// Backslashes are converted on every platform: .dproj files carry Windows
// separators even when the analysis runs on Linux CI.
func Normalize(path string) string {
	return strings.ToLower(strings.ReplaceAll(filepath.ToSlash(path), `\`, "/"))
}

// ChangedSet builds a lookup set from already repo-relative paths, e.g.
// git diff output, normalizing each entry.
func ChangedSet(files []string) map[string]bool {
	set := make(map[string]bool, len(files))
	for _, f := range files {
		f = strings.TrimSpace(f)
		if f != "" {
			set[Normalize(f)] = true
		}
	}
	return set
}
