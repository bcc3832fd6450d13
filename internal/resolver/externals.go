package resolver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ExternalsFileName is the classification file consulted before any
// filesystem scan of a dependency.
const ExternalsFileName = "external-units.json"

// Externals classifies dependency identifiers as runtime/library code
// outside the repository. Matching is case-insensitive, by exact name or
// name prefix.
type Externals struct {
	Prefixes   []string `json:"prefixes"`
	ExactNames []string `json:"exactNames"`

	lowerPrefixes []string
	lowerExact    map[string]bool
}

// DefaultExternals returns the well-known Delphi runtime and framework
// namespaces plus the classic non-namespaced RTL unit names.
func DefaultExternals() *Externals {
	x := &Externals{
		Prefixes: []string{
			"System.", "Vcl.", "FMX.", "Winapi.", "Data.", "Datasnap.",
			"FireDAC.", "REST.", "Soap.", "Xml.", "Web.", "Generics.",
			"IBX.", "Bde.",
		},
		ExactNames: []string{
			"System", "SysUtils", "Classes", "Windows", "Messages",
			"Graphics", "Controls", "Forms", "Dialogs", "StdCtrls",
			"ExtCtrls", "ComCtrls", "Menus", "Registry", "Variants",
			"Math", "StrUtils", "DateUtils", "IniFiles", "TypInfo",
			"ActiveX", "ShellAPI", "SyncObjs", "Types",
		},
	}
	x.prepare()
	return x
}

func (x *Externals) prepare() {
	x.lowerPrefixes = make([]string, len(x.Prefixes))
	for i, p := range x.Prefixes {
		x.lowerPrefixes[i] = strings.ToLower(p)
	}
	x.lowerExact = make(map[string]bool, len(x.ExactNames))
	for _, n := range x.ExactNames {
		x.lowerExact[strings.ToLower(n)] = true
	}
}

// Contains reports whether name is classified external.
func (x *Externals) Contains(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return false
	}
	if x.lowerExact[lower] {
		return true
	}
	for _, prefix := range x.lowerPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// LoadExternals discovers the externals configuration: a file beside the
// running executable first, then in the project directory. When neither
// exists, defaults are written beside the executable (best effort) and
// returned.
func LoadExternals(projectDir string, logger *slog.Logger) *Externals {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var locations []string
	if exe, err := os.Executable(); err == nil {
		locations = append(locations, filepath.Join(filepath.Dir(exe), ExternalsFileName))
	}
	if projectDir != "" {
		locations = append(locations, filepath.Join(projectDir, ExternalsFileName))
	}

	for _, path := range locations {
		x, err := readExternals(path)
		if err == nil {
			logger.Debug("loaded external-unit configuration", "path", path,
				"prefixes", len(x.Prefixes), "exactNames", len(x.ExactNames))
			return x
		}
		if !os.IsNotExist(err) {
			logger.Warn("cannot read external-unit configuration; using defaults",
				"path", path, "error", err.Error())
			return DefaultExternals()
		}
	}

	defaults := DefaultExternals()
	if len(locations) > 0 {
		if err := writeExternals(locations[0], defaults); err != nil {
			logger.Debug("cannot write default external-unit configuration",
				"path", locations[0], "error", err.Error())
		}
	}
	return defaults
}

// LoadExternalsFile reads an explicitly configured externals file. Unlike
// LoadExternals there is no discovery: a missing or unreadable file is
// reported and defaults are used.
func LoadExternalsFile(path string, logger *slog.Logger) *Externals {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	x, err := readExternals(path)
	if err != nil {
		logger.Warn("cannot read configured external-unit file; using defaults",
			"path", path, "error", err.Error())
		return DefaultExternals()
	}
	return x
}

func readExternals(path string) (*Externals, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var x Externals
	if err := json.Unmarshal(data, &x); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	x.prepare()
	return &x, nil
}

func writeExternals(path string, x *Externals) error {
	data, err := json.MarshalIndent(x, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
