package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/GuardianFree/PascalDepsAnalyzer/internal/analyzer"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/config"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/depcache"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/model"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/output"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/resolver"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/storage"
)

var (
	analyzeConfigName string
	analyzePlatform   string
	analyzeFormat     string
	analyzeOutput     string
	analyzeNoCache    bool
	analyzeWorkers    int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <project.dproj>",
	Short: "Build the dependency graph for one project",
	Long: `Build the full unit dependency graph for a project, starting at its
main source and following uses clauses under the active configuration.

Examples:
  pasdeps analyze apps/billing/Billing.dproj
  pasdeps analyze Billing.dproj --config=Release --platform=Win64
  pasdeps analyze Billing.dproj --format=dot -o graph.dot`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeConfigName, "config", "", "Build configuration (default: project's)")
	analyzeCmd.Flags().StringVar(&analyzePlatform, "platform", "", "Target platform (default: project's)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "text", "Output format (text, json, yaml, dot)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Write output to a file instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "Ignore the persisted parse cache")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "Concurrent parse workers (0 = auto)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	start := time.Now()

	projectPath, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	repoRoot := resolver.FindRepoRoot(filepath.Dir(projectPath))
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cache := openCache(cfg, repoRoot, analyzeNoCache, logger)
	a := analyzer.NewAnalyzer(cache, logger, workersOrConfig(cfg))
	configureAnalyzer(a, cfg, repoRoot)

	p, err := a.AnalyzeProject(cmd.Context(), analyzer.ProjectRef{
		Path:     projectPath,
		Config:   analyzeConfigName,
		Platform: analyzePlatform,
	})
	if err != nil {
		return err
	}

	hits, misses, _ := cache.Stats()
	duration := time.Since(start).Milliseconds()
	saveCache(cache, cfg, repoRoot, analyzeNoCache, logger)
	recordRun(cfg, repoRoot, p, hits, misses, duration, logger)

	w, closeFn, err := outputWriter(analyzeOutput)
	if err != nil {
		return err
	}
	defer closeFn()
	return output.NewReport(p, hits, misses, duration).Write(w, analyzeFormat)
}

// configureAnalyzer applies the resolver settings from the config file.
func configureAnalyzer(a *analyzer.Analyzer, cfg *config.Config, repoRoot string) {
	a.SetIndexDepth(cfg.Resolver.IndexDepth)
	if cfg.Resolver.ExternalsFile != "" {
		path := cfg.Resolver.ExternalsFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(repoRoot, path)
		}
		a.SetExternalsFile(path)
	}
}

// workersOrConfig lets the flag override the config file.
func workersOrConfig(cfg *config.Config) int {
	if analyzeWorkers > 0 {
		return analyzeWorkers
	}
	return cfg.Workers
}

// openCache loads the persisted cache when enabled. Load failures start a
// cold run instead of failing the command.
func openCache(cfg *config.Config, repoRoot string, disabled bool, logger *slog.Logger) *depcache.Cache {
	cache := depcache.New(logger)
	if disabled || !cfg.Cache.Enabled {
		return cache
	}
	if err := cache.Load(cfg.CachePath(repoRoot)); err != nil {
		logger.Warn("cache load failed, starting cold", "error", err.Error())
	}
	return cache
}

func saveCache(cache *depcache.Cache, cfg *config.Config, repoRoot string, disabled bool, logger *slog.Logger) {
	if disabled || !cfg.Cache.Enabled {
		return
	}
	if err := cache.Save(cfg.CachePath(repoRoot)); err != nil {
		logger.Warn("cache save failed", "error", err.Error())
	}
}

// recordRun appends to the run-history database, best effort.
func recordRun(cfg *config.Config, repoRoot string, p *model.Project, hits, misses, durationMs int64, logger *slog.Logger) {
	if !cfg.History.Enabled {
		return
	}
	store, err := storage.OpenHistory(cfg.HistoryPath(repoRoot), logger)
	if err != nil {
		logger.Warn("history store unavailable", "error", err.Error())
		return
	}
	defer store.Close() //nolint:errcheck

	rel, err := filepath.Rel(repoRoot, p.ProjectFile)
	if err != nil {
		rel = p.ProjectFile
	}
	run := &storage.Run{
		Project:     filepath.ToSlash(rel),
		Config:      p.Config,
		Platform:    p.Platform,
		DurationMs:  durationMs,
		Units:       p.Graph.NodeCount(),
		Edges:       p.Graph.EdgeCount(),
		CacheHits:   hits,
		CacheMisses: misses,
	}
	if err := store.RecordRun(run); err != nil {
		logger.Warn("history record failed", "error", err.Error())
	}
}

func outputWriter(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { f.Close() }, nil //nolint:errcheck
}
