// Package output renders analysis results for humans and for downstream
// CI tooling. All formats are deterministic: nodes and edges come from the
// graph's sorted snapshots.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/GuardianFree/PascalDepsAnalyzer/internal/model"
)

// Supported output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatDOT  = "dot"
)

// Report is the serializable result of one project analysis.
type Report struct {
	Project  string       `json:"project" yaml:"project"`
	Config   string       `json:"config" yaml:"config"`
	Platform string       `json:"platform" yaml:"platform"`
	Nodes    []model.Node `json:"nodes" yaml:"nodes"`
	Edges    []model.Edge `json:"edges" yaml:"edges"`
	Includes []string     `json:"includes,omitempty" yaml:"includes,omitempty"`
	Stats    Stats        `json:"stats" yaml:"stats"`
}

// Stats summarizes a run.
type Stats struct {
	Units       int     `json:"units" yaml:"units"`
	Edges       int     `json:"edges" yaml:"edges"`
	External    int     `json:"external" yaml:"external"`
	NotFound    int     `json:"notFound" yaml:"notFound"`
	CacheHits   int64   `json:"cacheHits" yaml:"cacheHits"`
	CacheMisses int64   `json:"cacheMisses" yaml:"cacheMisses"`
	DurationMs  int64   `json:"durationMs" yaml:"durationMs"`
	HitRate     float64 `json:"hitRate" yaml:"hitRate"`
}

// NewReport builds a report from an analyzed project.
func NewReport(p *model.Project, cacheHits, cacheMisses, durationMs int64) *Report {
	r := &Report{
		Project:  p.ProjectFile,
		Config:   p.Config,
		Platform: p.Platform,
		Nodes:    p.Graph.Nodes(),
		Edges:    p.Graph.Edges(),
		Includes: p.Includes(),
		Stats: Stats{
			Edges:       p.Graph.EdgeCount(),
			CacheHits:   cacheHits,
			CacheMisses: cacheMisses,
			DurationMs:  durationMs,
		},
	}
	for _, node := range r.Nodes {
		switch node.Path {
		case model.ExternalPath:
			r.Stats.External++
		case model.NotFoundPath:
			r.Stats.NotFound++
		default:
			r.Stats.Units++
		}
	}
	if total := cacheHits + cacheMisses; total > 0 {
		r.Stats.HitRate = float64(cacheHits) / float64(total)
	}
	return r
}

// Write renders the report in the requested format.
func (r *Report) Write(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(r)
	case FormatDOT:
		return r.writeDOT(w)
	case FormatText, "":
		return r.writeText(w)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// writeDOT emits a Graphviz digraph. External and unresolved units are
// drawn dashed so problem spots stand out in the rendering.
func (r *Report) writeDOT(w io.Writer) error {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, fontsize=10];\n")
	for _, node := range r.Nodes {
		attrs := ""
		switch node.Path {
		case model.ExternalPath:
			attrs = " [style=dashed, color=gray]"
		case model.NotFoundPath:
			attrs = " [style=dashed, color=red]"
		}
		fmt.Fprintf(&b, "  %q%s;\n", node.Name, attrs)
	}
	for _, edge := range r.Edges {
		fmt.Fprintf(&b, "  %q -> %q;\n", edge.From, edge.To)
	}
	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Report) writeText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Project:  %s\n", r.Project)
	fmt.Fprintf(&b, "Config:   %s / %s\n", r.Config, r.Platform)
	fmt.Fprintf(&b, "Units:    %d (%d external, %d not found)\n",
		r.Stats.Units, r.Stats.External, r.Stats.NotFound)
	fmt.Fprintf(&b, "Edges:    %d\n", r.Stats.Edges)
	fmt.Fprintf(&b, "Includes: %d\n", len(r.Includes))
	fmt.Fprintf(&b, "Cache:    %d hits, %d misses (%.0f%%)\n",
		r.Stats.CacheHits, r.Stats.CacheMisses, r.Stats.HitRate*100)
	fmt.Fprintf(&b, "Duration: %dms\n", r.Stats.DurationMs)

	notFound := make([]string, 0)
	for _, node := range r.Nodes {
		if node.Path == model.NotFoundPath {
			notFound = append(notFound, node.Name)
		}
	}
	if len(notFound) > 0 {
		fmt.Fprintf(&b, "\nUnresolved units:\n")
		for _, name := range notFound {
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteAffected renders an affected-projects result: plain lines for text,
// a list for the structured formats.
func WriteAffected(w io.Writer, projects []string, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string][]string{"affected": projects})
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(map[string][]string{"affected": projects})
	case FormatText, "":
		for _, p := range projects {
			if _, err := fmt.Fprintln(w, p); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
