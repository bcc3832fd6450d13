package model

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Project holds everything known about one Pascal project under analysis:
// its metadata, the growing set of discovered units and include files, and
// the dependency graph. Units, includes and the graph are appended to
// concurrently during traversal and never removed.
type Project struct {
	// ProjectFile is the absolute path of the .dproj file
	ProjectFile string
	// MainSource is the absolute path of the main entry file (.dpr)
	MainSource string
	// SearchPaths are the declared unit search paths, in order
	SearchPaths []string
	// IncludePaths are the declared include paths, in order
	IncludePaths []string
	// Config is the active configuration name (e.g. Debug, Release)
	Config string
	// Platform is the active platform name (e.g. Win32, Win64)
	Platform string
	// Defines is the base set of active compilation symbols
	Defines []string
	// CompilerVars maps compiler numeric variables, e.g. COMPILERVERSION
	CompilerVars map[string]int

	// Graph is the dependency graph built during analysis
	Graph *DependencyGraph

	units    sync.Map // lowercase unit name -> *Unit
	includes sync.Map // absolute path -> true
}

// NewProject creates a Project with an empty graph.
func NewProject(projectFile string) *Project {
	return &Project{
		ProjectFile:  projectFile,
		CompilerVars: make(map[string]int),
		Graph:        NewDependencyGraph(),
	}
}

// AddUnit records a discovered unit. The first unit recorded for a name wins.
func (p *Project) AddUnit(u *Unit) {
	p.units.LoadOrStore(strings.ToLower(u.Name), u)
}

// Unit returns the recorded unit for a name, case-insensitively.
func (p *Project) Unit(name string) (*Unit, bool) {
	v, ok := p.units.Load(strings.ToLower(name))
	if !ok {
		return nil, false
	}
	return v.(*Unit), true
}

// Units returns a snapshot of all discovered units, sorted by name.
func (p *Project) Units() []*Unit {
	var units []*Unit
	p.units.Range(func(_, v any) bool {
		units = append(units, v.(*Unit))
		return true
	})
	sort.Slice(units, func(i, j int) bool {
		return strings.ToLower(units[i].Name) < strings.ToLower(units[j].Name)
	})
	return units
}

// AddInclude records a discovered include file.
func (p *Project) AddInclude(path string) {
	p.includes.Store(path, true)
}

// Includes returns a sorted snapshot of all discovered include files.
func (p *Project) Includes() []string {
	var paths []string
	p.includes.Range(func(k, _ any) bool {
		paths = append(paths, k.(string))
		return true
	})
	sort.Strings(paths)
	return paths
}

// ProjectDir returns the directory containing the project file.
func (p *Project) ProjectDir() string {
	return filepath.Dir(p.ProjectFile)
}
