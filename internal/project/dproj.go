// Package project reads Delphi project metadata (.dproj) into the analysis
// model: main source, search and include paths, active configuration and
// platform, and the symbol set the compiler would see.
package project

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/GuardianFree/PascalDepsAnalyzer/internal/model"
)

// Compiler numeric variables for {$IF CompilerVersion >= ...} checks.
// Alexandria-era values; override per project when pinning older toolchains.
var defaultCompilerVars = map[string]int{
	"COMPILERVERSION": 35,
	"RTLVERSION":      35,
}

type dprojFile struct {
	XMLName        xml.Name        `xml:"Project"`
	PropertyGroups []propertyGroup `xml:"PropertyGroup"`
}

type propertyGroup struct {
	Condition  string     `xml:"Condition,attr"`
	Properties []property `xml:",any"`
}

type property struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

func (g propertyGroup) get(name string) (string, bool) {
	for _, p := range g.Properties {
		if p.XMLName.Local == name {
			return strings.TrimSpace(p.Value), true
		}
	}
	return "", false
}

// Load reads a .dproj file and builds the Project for one configuration
// and platform. Empty config/platform select the project's defaults. An
// unreadable project file or missing main source aborts the whole run.
func Load(path, config, platform string, logger *slog.Logger) (*model.Project, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}
	var file dprojFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse project file %s: %w", path, err)
	}

	p := model.NewProject(abs)
	p.Config = config
	p.Platform = platform

	// Defaults come from the unconditional groups:
	//   <Config Condition=" '$(Config)'=='' ">Debug</Config>
	for _, g := range file.PropertyGroups {
		if p.Config == "" {
			if v, ok := g.get("Config"); ok && v != "" {
				p.Config = v
			}
		}
		if p.Platform == "" {
			if v, ok := g.get("Platform"); ok && v != "" {
				p.Platform = v
			}
		}
	}
	if p.Config == "" {
		p.Config = "Debug"
	}
	if p.Platform == "" {
		p.Platform = "Win32"
	}

	projectDir := filepath.Dir(abs)
	var mainSource string
	for _, g := range file.PropertyGroups {
		if !groupApplies(g.Condition, p.Config, p.Platform) {
			continue
		}
		if v, ok := g.get("MainSource"); ok && v != "" {
			mainSource = v
		}
		if v, ok := g.get("DCC_UnitSearchPath"); ok {
			p.SearchPaths = append(p.SearchPaths, splitPathList(v, projectDir)...)
		}
		if v, ok := g.get("DCC_IncludePath"); ok {
			p.IncludePaths = append(p.IncludePaths, splitPathList(v, projectDir)...)
		}
		if v, ok := g.get("DCC_Define"); ok {
			p.Defines = append(p.Defines, splitDefines(v)...)
		}
	}

	if mainSource == "" {
		// Convention: Foo.dproj builds Foo.dpr.
		mainSource = strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)) + ".dpr"
	}
	p.MainSource = filepath.Join(projectDir, filepath.FromSlash(strings.ReplaceAll(mainSource, `\`, "/")))
	if _, err := os.Stat(p.MainSource); err != nil {
		return nil, fmt.Errorf("main source %s: %w", p.MainSource, err)
	}

	p.Defines = append(p.Defines, platformSymbols(p.Platform, p.Config)...)
	for name, value := range defaultCompilerVars {
		p.CompilerVars[name] = value
	}

	logger.Debug("project loaded", "project", abs,
		"config", p.Config, "platform", p.Platform,
		"searchPaths", len(p.SearchPaths), "defines", len(p.Defines))
	return p, nil
}

// groupApplies decides whether a PropertyGroup participates under the
// active configuration and platform. MSBuild condition evaluation is not
// modeled; a group applies when its condition is empty, names the base
// configuration, or mentions the active config/platform.
func groupApplies(condition, config, platform string) bool {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return true
	}
	lower := strings.ToLower(condition)
	if strings.Contains(lower, "$(base)") {
		return true
	}
	if strings.Contains(lower, strings.ToLower(config)) {
		return true
	}
	return strings.Contains(lower, strings.ToLower(platform))
}

// splitPathList splits a semicolon path list, drops macro-valued entries
// such as $(BDSLIB), and makes the rest absolute against the project dir.
func splitPathList(list, projectDir string) []string {
	var paths []string
	for _, entry := range strings.Split(list, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" || strings.Contains(entry, "$(") {
			continue
		}
		entry = filepath.FromSlash(strings.ReplaceAll(entry, `\`, "/"))
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(projectDir, entry)
		}
		paths = append(paths, entry)
	}
	return paths
}

func splitDefines(list string) []string {
	var defines []string
	for _, entry := range strings.Split(list, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" || strings.Contains(entry, "$(") {
			continue
		}
		defines = append(defines, entry)
	}
	return defines
}

// platformSymbols returns the symbols the compiler predefines for a
// platform, plus the configuration name itself (DEBUG/RELEASE).
func platformSymbols(platform, config string) []string {
	symbols := []string{"CONDITIONALEXPRESSIONS", strings.ToUpper(config)}
	switch strings.ToLower(platform) {
	case "win64":
		symbols = append(symbols, "MSWINDOWS", "WIN64", "CPUX64", "CPU64BITS")
	case "linux64":
		symbols = append(symbols, "LINUX", "LINUX64", "CPUX64", "CPU64BITS", "POSIX")
	case "osx64":
		symbols = append(symbols, "MACOS", "OSX64", "CPUX64", "CPU64BITS", "POSIX")
	default: // Win32
		symbols = append(symbols, "MSWINDOWS", "WIN32", "CPUX86", "CPU386", "CPU32BITS")
	}
	return symbols
}
