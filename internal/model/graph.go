package model

import (
	"sort"
	"strings"
	"sync"
)

// Sentinel node paths for dependencies that resolve outside the repository
// or not at all.
const (
	// ExternalPath marks a unit classified as runtime/library code
	ExternalPath = "[External]"
	// NotFoundPath marks a unit that could not be resolved to a file
	NotFoundPath = "[Not Found]"
)

// Node is a unit in the dependency graph.
type Node struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Edge is a directed "depends-on" relation between a unit and an identifier
// from its uses clause.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DependencyGraph is a set of unit nodes and depends-on edges. Nodes and
// edges are deduplicated case-insensitively. The graph is built concurrently;
// insertion order is not guaranteed, only set membership is. All accessors
// return snapshots.
type DependencyGraph struct {
	mu    sync.Mutex
	nodes map[string]Node
	edges map[Edge]bool
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]Node),
		edges: make(map[Edge]bool),
	}
}

// AddNode inserts a node for the named unit. The first insertion for a name
// wins; later insertions for the same name (in any casing) are ignored.
func (g *DependencyGraph) AddNode(name, path string) {
	key := strings.ToLower(name)
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[key]; !ok {
		g.nodes[key] = Node{Name: name, Path: path}
	}
}

// AddEdge inserts a depends-on edge. Duplicate edges are ignored.
func (g *DependencyGraph) AddEdge(from, to string) {
	edge := Edge{From: strings.ToLower(from), To: strings.ToLower(to)}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges[edge] = true
}

// HasNode reports whether a node exists for the named unit.
func (g *DependencyGraph) HasNode(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.nodes[strings.ToLower(name)]
	return ok
}

// NodePath returns the path recorded for the named unit.
func (g *DependencyGraph) NodePath(name string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	node, ok := g.nodes[strings.ToLower(name)]
	return node.Path, ok
}

// Nodes returns a snapshot of all nodes, sorted by name for stable output.
func (g *DependencyGraph) Nodes() []Node {
	g.mu.Lock()
	nodes := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	g.mu.Unlock()
	sort.Slice(nodes, func(i, j int) bool {
		return strings.ToLower(nodes[i].Name) < strings.ToLower(nodes[j].Name)
	})
	return nodes
}

// Edges returns a snapshot of all edges, sorted for stable output.
func (g *DependencyGraph) Edges() []Edge {
	g.mu.Lock()
	edges := make([]Edge, 0, len(g.edges))
	for e := range g.edges {
		edges = append(edges, e)
	}
	g.mu.Unlock()
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// NodeCount returns the number of nodes.
func (g *DependencyGraph) NodeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *DependencyGraph) EdgeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.edges)
}
