// Package resolver maps unit identifiers and include references to files.
// It builds an in-memory index over a project's search paths once, then
// answers lookups from the index with deterministic collision priority.
package resolver

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/GuardianFree/PascalDepsAnalyzer/internal/model"
)

// DefaultIndexDepth bounds how deep each search path is walked while
// building the index.
const DefaultIndexDepth = 5

const unitExt = ".pas"

// candidate is one indexed file that may satisfy a unit name.
type candidate struct {
	path string
	// searchPathIndex is the position of the owning search path in the
	// project's declared order; lower wins on collision
	searchPathIndex int
}

// Resolver resolves unit names and include references for one project.
// The index is built single-threaded before any parallel phase and is
// read-only afterward; the per-run lookup cache is a concurrent map.
type Resolver struct {
	projectDir   string
	repoRoot     string
	searchPaths  []string
	includePaths []string
	maxDepth     int
	externals    *Externals
	logger       *slog.Logger

	index map[string][]candidate
	cache sync.Map // lowercase name -> string ("" = known unresolvable)
}

// New creates a resolver for the project. Call BuildIndex before resolving.
func New(project *model.Project, externals *Externals, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	projectDir := project.ProjectDir()
	return &Resolver{
		projectDir:   projectDir,
		repoRoot:     FindRepoRoot(projectDir),
		searchPaths:  project.SearchPaths,
		includePaths: project.IncludePaths,
		maxDepth:     DefaultIndexDepth,
		externals:    externals,
		logger:       logger,
		index:        make(map[string][]candidate),
	}
}

// SetIndexDepth overrides the walk depth; values below 1 are ignored.
func (r *Resolver) SetIndexDepth(depth int) {
	if depth >= 1 {
		r.maxDepth = depth
	}
}

// FindRepoRoot walks upward from start until it finds a directory holding a
// repository marker (.git). It falls back to start itself when no marker
// exists.
func FindRepoRoot(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// allowedRoots returns the only directories the resolver may read: the
// repository root, the project's own directory, and the search paths.
func (r *Resolver) allowedRoots() []string {
	roots := make([]string, 0, len(r.searchPaths)+2)
	roots = append(roots, r.repoRoot, r.projectDir)
	roots = append(roots, r.searchPaths...)
	return roots
}

func (r *Resolver) isAllowed(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, root := range r.allowedRoots() {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if abs == rootAbs || strings.HasPrefix(abs, rootAbs+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// BuildIndex walks the project directory and every search path up to the
// configured depth, indexing each unit file by its bare name and by its
// dotted path relative to the owning search path. Inaccessible directories
// are skipped silently; monorepos routinely contain restricted subtrees.
func (r *Resolver) BuildIndex() {
	walkRoots := append([]string{r.projectDir}, r.searchPaths...)
	for i, root := range walkRoots {
		// The project dir participates with the priority of a search path
		// declared before all others.
		r.indexRoot(root, i-1)
	}
	r.logger.Debug("unit index built",
		"names", len(r.index), "searchPaths", len(r.searchPaths))
}

func (r *Resolver) indexRoot(root string, searchPathIndex int) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return
	}
	if !r.isAllowed(rootAbs) {
		return
	}
	_ = filepath.WalkDir(rootAbs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entry, keep walking
		}
		if d.IsDir() {
			rel, relErr := filepath.Rel(rootAbs, path)
			if relErr != nil {
				return filepath.SkipDir
			}
			if rel != "." && strings.Count(rel, string(filepath.Separator)) >= r.maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), unitExt) {
			return nil
		}
		r.addCandidate(path, rootAbs, searchPathIndex)
		return nil
	})
}

func (r *Resolver) addCandidate(path, root string, searchPathIndex int) {
	c := candidate{path: path, searchPathIndex: searchPathIndex}

	bare := strings.ToLower(model.UnitNameFromPath(path))
	r.index[bare] = append(r.index[bare], c)

	// Qualified lookup: the file's path relative to the owning search path
	// with separators as dots, e.g. core/db/Client.pas -> core.db.client.
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return
	}
	dotted := strings.ToLower(strings.TrimSuffix(filepath.ToSlash(rel), unitExt))
	dotted = strings.ReplaceAll(dotted, "/", ".")
	if dotted != bare {
		r.index[dotted] = append(r.index[dotted], c)
	}
}

// ResolveUnit resolves a unit identifier to a file path, or "" when the
// unit cannot be found. Results, including negative ones, are cached for
// the run.
func (r *Resolver) ResolveUnit(name string) string {
	name = strings.TrimSpace(name)
	key := strings.ToLower(name)
	if key == "" {
		return ""
	}
	if cached, ok := r.cache.Load(key); ok {
		return cached.(string)
	}
	path := r.lookup(key, name)
	r.cache.Store(key, path)
	return path
}

func (r *Resolver) lookup(key, original string) string {
	if candidates, ok := r.index[key]; ok && len(candidates) > 0 {
		return r.pickCandidate(candidates)
	}
	return r.probe(key, original)
}

// pickCandidate ranks colliding candidates: earlier search path first, then
// more leading path segments shared with the project root, then fewer path
// segments. Remaining ties keep first-found order.
func (r *Resolver) pickCandidate(candidates []candidate) string {
	if len(candidates) == 1 {
		return candidates[0].path
	}
	ranked := make([]candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].searchPathIndex != ranked[j].searchPathIndex {
			return ranked[i].searchPathIndex < ranked[j].searchPathIndex
		}
		ci := commonSegments(ranked[i].path, r.projectDir)
		cj := commonSegments(ranked[j].path, r.projectDir)
		if ci != cj {
			return ci > cj
		}
		return segmentCount(ranked[i].path) < segmentCount(ranked[j].path)
	})
	return ranked[0].path
}

func commonSegments(a, b string) int {
	as := strings.Split(filepath.ToSlash(a), "/")
	bs := strings.Split(filepath.ToSlash(b), "/")
	n := 0
	for n < len(as) && n < len(bs) && strings.EqualFold(as[n], bs[n]) {
		n++
	}
	return n
}

func segmentCount(path string) int {
	return len(strings.Split(filepath.ToSlash(path), "/"))
}

// probe falls back to direct filesystem checks against each search path in
// declared order when the index has no entry. The caller's original
// spelling is tried before the lowercased key; on a case-sensitive
// filesystem only the original reaches a mixed-case file.
func (r *Resolver) probe(key, original string) string {
	spellings := []string{original}
	if key != original {
		spellings = append(spellings, key)
	}
	var fileNames []string
	for _, s := range spellings {
		fileNames = append(fileNames, s+unitExt)
		if strings.Contains(s, ".") {
			fileNames = append(fileNames, strings.ReplaceAll(s, ".", string(filepath.Separator))+unitExt)
		}
	}
	dirs := append([]string{r.projectDir}, r.searchPaths...)
	for _, dir := range dirs {
		for _, fileName := range fileNames {
			path := filepath.Join(dir, fileName)
			if !r.isAllowed(path) {
				continue
			}
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// ResolveInclude resolves an include reference: relative to the including
// file's directory first, then as an absolute path, then against each
// include and search path in order. Include references are sparse, so a
// linear probe per lookup is acceptable.
func (r *Resolver) ResolveInclude(name, fromFile string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))

	var probes []string
	if fromFile != "" {
		probes = append(probes, filepath.Join(filepath.Dir(fromFile), name))
	}
	if filepath.IsAbs(name) {
		probes = append(probes, name)
	}
	for _, dir := range append(append([]string{}, r.includePaths...), r.searchPaths...) {
		probes = append(probes, filepath.Join(dir, name))
	}

	for _, path := range probes {
		if !r.isAllowed(path) {
			continue
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// IsExternal reports whether the identifier belongs to a runtime/library
// namespace that never resolves inside the repository.
func (r *Resolver) IsExternal(name string) bool {
	return r.externals != nil && r.externals.Contains(name)
}
