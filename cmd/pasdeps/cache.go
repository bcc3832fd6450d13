package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GuardianFree/PascalDepsAnalyzer/internal/config"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/depcache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the persisted parse cache",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache location and entry count",
	RunE:  runCacheInfo,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the persisted parse cache",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheInfoCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	repoRoot := repoRootFromCwd()
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return err
	}
	path := cfg.CachePath(repoRoot)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		fmt.Printf("Cache:   %s (absent)\n", path)
		return nil
	}
	if err != nil {
		return err
	}

	cache := depcache.New(newLogger())
	if err := cache.Load(path); err != nil {
		return err
	}
	_, _, entries := cache.Stats()
	fmt.Printf("Cache:   %s\n", path)
	fmt.Printf("Size:    %d bytes\n", info.Size())
	fmt.Printf("Entries: %d\n", entries)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	repoRoot := repoRootFromCwd()
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return err
	}
	path := cfg.CachePath(repoRoot)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	fmt.Printf("Removed %s\n", path)
	return nil
}
