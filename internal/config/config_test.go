package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if !cfg.Cache.Enabled || cfg.Cache.File != "cache.json.zst" {
		t.Errorf("Unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Resolver.IndexDepth != 5 {
		t.Errorf("IndexDepth = %d, want 5", cfg.Resolver.IndexDepth)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadConfigPartialFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ConfigDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	content := `{"workers": 8, "logging": {"level": "debug"}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
	// Unset fields keep their defaults.
	if cfg.Cache.File != "cache.json.zst" {
		t.Errorf("Cache.File = %q, want default", cfg.Cache.File)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Workers = 4
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Workers != 4 {
		t.Errorf("Workers = %d, want 4", loaded.Workers)
	}
}

func TestPathHelpers(t *testing.T) {
	cfg := DefaultConfig()
	root := t.TempDir()
	if got := cfg.CachePath(root); got != filepath.Join(root, ConfigDirName, "cache.json.zst") {
		t.Errorf("CachePath = %q", got)
	}
	cfg.History.File = "/var/lib/pasdeps/history.db"
	if got := cfg.HistoryPath(root); got != "/var/lib/pasdeps/history.db" {
		t.Errorf("HistoryPath = %q", got)
	}
}
