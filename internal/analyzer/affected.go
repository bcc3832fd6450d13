package analyzer

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/GuardianFree/PascalDepsAnalyzer/internal/depcache"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/model"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/paths"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/project"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/resolver"
)

// ProjectRef identifies one project to analyze, with its configuration.
type ProjectRef struct {
	Path     string `json:"path" toml:"path"`
	Config   string `json:"config,omitempty" toml:"config,omitempty"`
	Platform string `json:"platform,omitempty" toml:"platform,omitempty"`
}

// Analyzer runs full graph analyses, sharing one parse cache across
// projects so units used by several programs are parsed once.
type Analyzer struct {
	cache         *depcache.Cache
	logger        *slog.Logger
	workers       int
	indexDepth    int
	externalsFile string
}

// NewAnalyzer creates an analyzer over a shared cache.
func NewAnalyzer(cache *depcache.Cache, logger *slog.Logger, workers int) *Analyzer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cache == nil {
		cache = depcache.New(logger)
	}
	return &Analyzer{cache: cache, logger: logger, workers: workers}
}

// Cache exposes the shared parse cache for persistence by the caller.
func (a *Analyzer) Cache() *depcache.Cache { return a.cache }

// SetIndexDepth overrides the resolver's search-path walk depth.
func (a *Analyzer) SetIndexDepth(depth int) { a.indexDepth = depth }

// SetExternalsFile pins the external-unit classification to an explicit
// file instead of the default discovery beside the executable and project.
func (a *Analyzer) SetExternalsFile(path string) { a.externalsFile = path }

// AnalyzeProject loads a project file and builds its dependency graph.
func (a *Analyzer) AnalyzeProject(ctx context.Context, ref ProjectRef) (*model.Project, error) {
	p, _, err := a.analyzeProject(ctx, ref, nil)
	return p, err
}

// analyzeProject builds the graph, short-circuiting against a changed set
// when one is given: a match on the project file or main source skips the
// build entirely, and a match during expansion stops it. The bool reports
// whether a match occurred; a true result may leave the graph partial.
func (a *Analyzer) analyzeProject(ctx context.Context, ref ProjectRef, changed map[string]bool) (*model.Project, bool, error) {
	p, err := project.Load(ref.Path, ref.Config, ref.Platform, a.logger)
	if err != nil {
		return nil, false, err
	}
	var externals *resolver.Externals
	if a.externalsFile != "" {
		externals = resolver.LoadExternalsFile(a.externalsFile, a.logger)
	} else {
		externals = resolver.LoadExternals(p.ProjectDir(), a.logger)
	}
	res := resolver.New(p, externals, a.logger)
	res.SetIndexDepth(a.indexDepth)
	builder := NewBuilder(p, res, a.cache, a.logger, a.workers)

	if len(changed) > 0 {
		repoRoot := resolver.FindRepoRoot(p.ProjectDir())
		inSet := func(abs string) bool {
			rel, err := paths.RepoRel(abs, repoRoot)
			return err == nil && changed[rel]
		}
		if inSet(p.ProjectFile) || inSet(p.MainSource) {
			return p, true, nil
		}
		builder.StopWhen(inSet)
	}
	if err := builder.Analyze(ctx); err != nil {
		return nil, false, err
	}
	return p, builder.Matched(), nil
}

// FindAffected returns the project paths whose dependency closure touches
// any of the changed files. changed holds repo-relative paths as git
// reports them. Each project's build stops at the first file matching the
// changed set. Projects are analyzed concurrently; a project that fails
// to analyze is reported affected, since CI cannot prove it safe to skip.
func (a *Analyzer) FindAffected(ctx context.Context, refs []ProjectRef, changed []string) ([]string, error) {
	changedSet := paths.ChangedSet(changed)
	if len(changedSet) == 0 {
		return nil, nil
	}

	var mu sync.Mutex
	var affected []string
	mark := func(ref ProjectRef) {
		mu.Lock()
		affected = append(affected, ref.Path)
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, a.workers))
	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			p, matched, err := a.analyzeProject(ctx, ref, changedSet)
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				a.logger.Warn("project analysis failed, treating as affected",
					"project", ref.Path, "error", err.Error())
				mark(ref)
				return nil
			}
			if matched || a.projectTouches(p, changedSet) {
				mark(ref)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(affected)
	return affected, nil
}

// projectTouches reports whether any file in the project's closure, its
// include files, its main source, or the project file itself is in the
// changed set.
func (a *Analyzer) projectTouches(p *model.Project, changed map[string]bool) bool {
	repoRoot := resolver.FindRepoRoot(p.ProjectDir())
	inSet := func(abs string) bool {
		rel, err := paths.RepoRel(abs, repoRoot)
		if err != nil {
			return false
		}
		return changed[rel]
	}

	if inSet(p.ProjectFile) || inSet(p.MainSource) {
		return true
	}
	for _, node := range p.Graph.Nodes() {
		if node.Path == model.ExternalPath || node.Path == model.NotFoundPath {
			continue
		}
		if inSet(node.Path) {
			return true
		}
	}
	for _, inc := range p.Includes() {
		if inSet(inc) {
			return true
		}
	}
	return false
}
