// Package config loads tool configuration from .pasdeps/config.json at
// the repository root. Everything has a sensible default so the tool runs
// with no config file at all.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ConfigDirName is the per-repo directory holding config and state files.
const ConfigDirName = ".pasdeps"

// Config is the complete tool configuration.
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	// Workers bounds concurrent file parsing; 0 means GOMAXPROCS.
	Workers int `json:"workers" mapstructure:"workers"`

	Cache    CacheConfig    `json:"cache" mapstructure:"cache"`
	Resolver ResolverConfig `json:"resolver" mapstructure:"resolver"`
	History  HistoryConfig  `json:"history" mapstructure:"history"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// CacheConfig controls the persisted parse cache.
type CacheConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// File is the cache path relative to the config dir. A .zst suffix
	// enables compression.
	File string `json:"file" mapstructure:"file"`
}

// ResolverConfig controls unit resolution.
type ResolverConfig struct {
	// IndexDepth limits how deep search paths are indexed.
	IndexDepth int `json:"indexDepth" mapstructure:"indexDepth"`
	// ExternalsFile overrides the external-units list location.
	ExternalsFile string `json:"externalsFile" mapstructure:"externalsFile"`
}

// HistoryConfig controls the run-history database.
type HistoryConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	File    string `json:"file" mapstructure:"file"`
}

// LoggingConfig selects log output format and level.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"` // human or json
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Workers: 0,
		Cache: CacheConfig{
			Enabled: true,
			File:    "cache.json.zst",
		},
		Resolver: ResolverConfig{
			IndexDepth: 5,
		},
		History: HistoryConfig{
			Enabled: true,
			File:    "history.db",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig reads .pasdeps/config.json under repoRoot, falling back to
// defaults when the file does not exist.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("version", defaults.Version)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("cache.enabled", defaults.Cache.Enabled)
	v.SetDefault("cache.file", defaults.Cache.File)
	v.SetDefault("resolver.indexDepth", defaults.Resolver.IndexDepth)
	v.SetDefault("history.enabled", defaults.History.Enabled)
	v.SetDefault("history.file", defaults.History.File)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ConfigDirName))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to .pasdeps/config.json under repoRoot.
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ConfigDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// CachePath returns the absolute cache file path for a repo.
func (c *Config) CachePath(repoRoot string) string {
	if filepath.IsAbs(c.Cache.File) {
		return c.Cache.File
	}
	return filepath.Join(repoRoot, ConfigDirName, c.Cache.File)
}

// HistoryPath returns the absolute run-history database path for a repo.
func (c *Config) HistoryPath(repoRoot string) string {
	if filepath.IsAbs(c.History.File) {
		return c.History.File
	}
	return filepath.Join(repoRoot, ConfigDirName, c.History.File)
}
