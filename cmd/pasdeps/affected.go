package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/GuardianFree/PascalDepsAnalyzer/internal/analyzer"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/config"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/manifest"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/output"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/vcs"
)

var (
	affectedManifest string
	affectedBase     string
	affectedFiles    []string
	affectedFormat   string
	affectedNoCache  bool
)

var affectedCmd = &cobra.Command{
	Use:   "affected",
	Short: "List projects affected by a set of changed files",
	Long: `Analyze every project in the manifest and report which ones depend on
any of the changed files. Changed files come from git (against --base) or
from an explicit --files list.

Exit status is 0 whether or not projects are affected; CI scripts consume
the output list.

Examples:
  pasdeps affected --base=origin/main
  pasdeps affected --files=src/Db/Client.pas --format=json
  pasdeps affected --manifest=ci/pasdeps.toml --base=HEAD~1`,
	RunE: runAffected,
}

func init() {
	affectedCmd.Flags().StringVar(&affectedManifest, "manifest", "", "Project manifest (default: <repo>/pasdeps.toml)")
	affectedCmd.Flags().StringVar(&affectedBase, "base", "HEAD", "Git ref to diff against")
	affectedCmd.Flags().StringSliceVar(&affectedFiles, "files", nil, "Changed files (repo-relative); skips git")
	affectedCmd.Flags().StringVar(&affectedFormat, "format", "text", "Output format (text, json, yaml)")
	affectedCmd.Flags().BoolVar(&affectedNoCache, "no-cache", false, "Ignore the persisted parse cache")
	rootCmd.AddCommand(affectedCmd)
}

func runAffected(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	repoRoot := repoRootFromCwd()

	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	manifestPath := affectedManifest
	if manifestPath == "" {
		manifestPath = filepath.Join(repoRoot, manifest.DefaultFileName)
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	changed := affectedFiles
	if len(changed) == 0 {
		changed, err = vcs.ChangedFiles(cmd.Context(), repoRoot, affectedBase, logger)
		if err != nil {
			return err
		}
	}
	if len(changed) == 0 {
		logger.Info("no changed files, nothing affected")
		return output.WriteAffected(os.Stdout, nil, affectedFormat)
	}

	cache := openCache(cfg, repoRoot, affectedNoCache, logger)
	a := analyzer.NewAnalyzer(cache, logger, cfg.Workers)
	configureAnalyzer(a, cfg, repoRoot)

	affected, err := a.FindAffected(cmd.Context(), m.Projects, changed)
	if err != nil {
		return err
	}
	saveCache(cache, cfg, repoRoot, affectedNoCache, logger)

	// CI scripts want repo-relative paths.
	rels := make([]string, 0, len(affected))
	for _, p := range affected {
		if rel, err := filepath.Rel(repoRoot, p); err == nil {
			rels = append(rels, filepath.ToSlash(rel))
		} else {
			rels = append(rels, p)
		}
	}
	return output.WriteAffected(os.Stdout, rels, affectedFormat)
}
