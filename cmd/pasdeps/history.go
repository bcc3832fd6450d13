package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/GuardianFree/PascalDepsAnalyzer/internal/config"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/storage"
)

var (
	historyLimit   int
	historyProject string
	historyFormat  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent analysis runs",
	Long: `List recent analysis runs from the run-history database: graph size,
duration and cache effectiveness per run.

Examples:
  pasdeps history
  pasdeps history --project=apps/billing/Billing.dproj --limit=5
  pasdeps history --format=json`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to show")
	historyCmd.Flags().StringVar(&historyProject, "project", "", "Filter by project path")
	historyCmd.Flags().StringVar(&historyFormat, "format", "text", "Output format (text, json)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	repoRoot := repoRootFromCwd()
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return err
	}

	store, err := storage.OpenHistory(cfg.HistoryPath(repoRoot), newLogger())
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	runs, err := store.RecentRuns(historyLimit, historyProject)
	if err != nil {
		return err
	}

	if historyFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %-40s %s/%s  %4d units  %4d edges  %5dms  cache %.0f%%\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.Project, r.Config, r.Platform,
			r.Units, r.Edges, r.DurationMs, r.HitRate()*100)
	}
	return nil
}
