// Package analyzer walks a project's uses graph starting at the main
// source, parsing units concurrently and recording nodes and edges as it
// goes. It also answers the CI question this tool exists for: which
// projects are affected by a set of changed files.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/GuardianFree/PascalDepsAnalyzer/internal/condition"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/depcache"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/model"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/resolver"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/source"
)

// Builder expands one project's dependency graph. Traversal fans out a
// goroutine per newly claimed unit; only the parse step is bounded by a
// semaphore, so a branch never blocks waiting for its own children's
// permits.
type Builder struct {
	project  *model.Project
	resolver *resolver.Resolver
	cache    *depcache.Cache
	logger   *slog.Logger

	base        *condition.Evaluator
	baseSymbols []string
	claimed     sync.Map // lowercase unit name -> true
	parseSem    *semaphore.Weighted

	stopWhen func(path string) bool
	matched  atomic.Bool
	cancel   context.CancelFunc
}

// NewBuilder wires a builder for one project. workers bounds concurrent
// file parsing; zero or negative means GOMAXPROCS.
func NewBuilder(project *model.Project, res *resolver.Resolver, cache *depcache.Cache, logger *slog.Logger, workers int) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Builder{
		project:  project,
		resolver: res,
		cache:    cache,
		logger:   logger,
		parseSem: semaphore.NewWeighted(int64(workers)),
	}
}

// StopWhen installs a predicate checked against every resolved unit and
// include file during expansion. The first match flags the builder and
// cancels the remaining traversal; Analyze then returns a partial graph
// without error. Must be set before Analyze.
func (b *Builder) StopWhen(fn func(path string) bool) { b.stopWhen = fn }

// Matched reports whether the StopWhen predicate fired during Analyze.
func (b *Builder) Matched() bool { return b.matched.Load() }

func (b *Builder) checkMatch(path string) {
	if b.stopWhen == nil || b.matched.Load() {
		return
	}
	if b.stopWhen(path) {
		b.matched.Store(true)
		b.cancel()
	}
}

// Analyze builds the full dependency graph for the project. A failure to
// read or parse the main source is fatal; failures deeper in the graph
// abandon only the affected branch. A StopWhen match ends the build early
// and is not an error.
func (b *Builder) Analyze(ctx context.Context) error {
	b.resolver.BuildIndex()
	b.base = condition.NewEvaluator(b.project.Defines, b.project.CompilerVars, b.logger)
	b.baseSymbols = b.base.ActiveSymbols()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	b.cancel = cancel

	root, err := b.parseFile(ctx, b.project.MainSource)
	if err != nil {
		return fmt.Errorf("parse main source: %w", err)
	}
	b.project.AddUnit(root)
	b.project.Graph.AddNode(root.Name, b.project.MainSource)

	// The root unit is deliberately never claimed: a cycle back to the
	// main program re-expands it once and then terminates, because every
	// other unit on the cycle is already claimed.
	g, ctx := errgroup.WithContext(ctx)
	b.expand(ctx, g, root.Name, root)
	err = g.Wait()
	if b.matched.Load() {
		return nil
	}
	return err
}

// expand records edges for every dependency of unit and schedules parsing
// for units not yet claimed. Externals and unresolvable names become
// terminal nodes with sentinel paths. A resolvable unit gains its node
// only once it parses; a unit that fails to parse stays edge-only.
func (b *Builder) expand(ctx context.Context, g *errgroup.Group, fromName string, unit *model.Unit) {
	for _, dep := range unit.AllUses() {
		if ctx.Err() != nil {
			return
		}
		if b.resolver.IsExternal(dep) {
			b.project.Graph.AddNode(dep, model.ExternalPath)
			b.project.Graph.AddEdge(fromName, dep)
			continue
		}
		path := b.resolver.ResolveUnit(dep)
		if path == "" {
			b.logger.Warn("unit not found", "unit", dep, "usedBy", fromName)
			b.project.Graph.AddNode(dep, model.NotFoundPath)
			b.project.Graph.AddEdge(fromName, dep)
			continue
		}
		b.project.Graph.AddEdge(fromName, dep)
		b.checkMatch(path)

		if _, loaded := b.claimed.LoadOrStore(strings.ToLower(dep), true); loaded {
			continue
		}
		dep, path := dep, path
		g.Go(func() error {
			depUnit, err := b.parseFile(ctx, path)
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				b.logger.Warn("parse failed, branch skipped", "unit", dep, "path", path, "error", err.Error())
				return nil
			}
			b.project.AddUnit(depUnit)
			b.project.Graph.AddNode(dep, path)
			b.expand(ctx, g, dep, depUnit)
			return nil
		})
	}
}

// parseFile returns the parsed unit for path, consulting the cache first.
// The cache key uses the project-level symbol set; in-file and included
// defines act on a per-file clone and never widen the key.
func (b *Builder) parseFile(ctx context.Context, path string) (*model.Unit, error) {
	if unit, includes := b.cache.Lookup(path, b.baseSymbols); unit != nil {
		// The stored include closure counts toward the project's file set
		// on warm runs just like a fresh parse would.
		for _, inc := range includes {
			b.project.AddInclude(inc)
			b.checkMatch(inc)
		}
		return unit, nil
	}

	if err := b.parseSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer b.parseSem.Release(1)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read unit: %w", err)
	}
	content := string(data)

	eval := b.base.CloneForFile()
	var includes []string
	b.applyIncludes(path, source.StripComments(content), eval, make(map[string]bool), &includes)

	unit := source.ParseUnit(path, content, eval)
	b.cache.Store(path, b.baseSymbols, unit, includes)
	return unit, nil
}

// applyIncludes resolves the include references of a stripped source text
// and folds their {$DEFINE}/{$UNDEF} directives into eval, depth-first, so
// symbols defined in an include influence conditionals in the including
// file. Every resolved path is collected into acc; the closure is stored
// with the cache entry so warm runs see the same include set. The visited
// set breaks include cycles.
func (b *Builder) applyIncludes(fromFile, stripped string, eval *condition.Evaluator, visited map[string]bool, acc *[]string) {
	for _, name := range source.ExtractIncludes(stripped) {
		path := b.resolver.ResolveInclude(name, fromFile)
		if path == "" {
			b.logger.Warn("include not found", "include", name, "usedBy", fromFile)
			continue
		}
		if visited[strings.ToLower(path)] {
			continue
		}
		visited[strings.ToLower(path)] = true
		b.project.AddInclude(path)
		b.checkMatch(path)
		*acc = append(*acc, path)

		data, err := os.ReadFile(path)
		if err != nil {
			b.logger.Warn("include unreadable", "path", path, "error", err.Error())
			continue
		}
		incStripped := source.StripComments(string(data))
		b.applyIncludes(path, incStripped, eval, visited, acc)
		eval.ExtractDefinitions(incStripped)
	}
}
