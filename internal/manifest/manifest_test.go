package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[[projects]]
path = "apps/billing/Billing.dproj"
config = "Release"
platform = "Win64"

[[projects]]
path = "/abs/path/Tool.dproj"
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(m.Projects) != 2 {
		t.Fatalf("Expected 2 projects, got %d", len(m.Projects))
	}
	want := filepath.Join(dir, "apps", "billing", "Billing.dproj")
	if m.Projects[0].Path != want {
		t.Errorf("Projects[0].Path = %q, want %q", m.Projects[0].Path, want)
	}
	if m.Projects[0].Config != "Release" || m.Projects[0].Platform != "Win64" {
		t.Errorf("Unexpected project config: %+v", m.Projects[0])
	}
	if m.Projects[1].Path != "/abs/path/Tool.dproj" {
		t.Errorf("Absolute path should be untouched, got %q", m.Projects[1].Path)
	}
}

func TestLoadEmpty(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "")
	if _, err := Load(path); err == nil {
		t.Error("Expected error for manifest with no projects")
	}
}

func TestLoadMissingPath(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "[[projects]]\nconfig = \"Debug\"\n")
	if _, err := Load(path); err == nil {
		t.Error("Expected error for project without path")
	}
}

func TestLoadInvalidToml(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "[[projects")
	if _, err := Load(path); err == nil {
		t.Error("Expected error for invalid TOML")
	}
}
