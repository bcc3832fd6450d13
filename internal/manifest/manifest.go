// Package manifest reads the batch manifest listing every project the CI
// pipeline cares about, so affected-project queries need no per-project
// flags.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/GuardianFree/PascalDepsAnalyzer/internal/analyzer"
)

// DefaultFileName is looked up at the repo root when no manifest path is
// given.
const DefaultFileName = "pasdeps.toml"

// Manifest lists the projects of a repository.
type Manifest struct {
	Projects []analyzer.ProjectRef `toml:"projects"`
}

// Load reads a manifest and makes relative project paths absolute against
// the manifest's directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Projects) == 0 {
		return nil, fmt.Errorf("manifest %s lists no projects", path)
	}

	dir := filepath.Dir(path)
	for i := range m.Projects {
		if m.Projects[i].Path == "" {
			return nil, fmt.Errorf("manifest %s: project %d has no path", path, i)
		}
		if !filepath.IsAbs(m.Projects[i].Path) {
			m.Projects[i].Path = filepath.Join(dir, filepath.FromSlash(m.Projects[i].Path))
		}
	}
	return &m, nil
}
