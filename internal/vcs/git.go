// Package vcs shells out to git to discover which files changed, so the
// affected-projects command can run without an explicit file list.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// ChangedFiles returns repo-relative paths changed since baseRef, plus
// untracked files. NUL-separated output avoids quoting issues with paths
// containing spaces.
func ChangedFiles(ctx context.Context, repoRoot, baseRef string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if baseRef == "" {
		baseRef = "HEAD"
	}

	diff, err := runGit(ctx, repoRoot, "diff", "--name-only", "-z", baseRef)
	if err != nil {
		return nil, fmt.Errorf("git diff against %s: %w", baseRef, err)
	}
	untracked, err := runGit(ctx, repoRoot, "ls-files", "--others", "--exclude-standard", "-z")
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	seen := make(map[string]bool)
	var files []string
	for _, out := range [][]byte{diff, untracked} {
		for _, entry := range bytes.Split(out, []byte{0}) {
			name := strings.TrimSpace(string(entry))
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			files = append(files, name)
		}
	}
	logger.Debug("changed files detected", "base", baseRef, "count", len(files))
	return files, nil
}

func runGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}
