package model

import (
	"reflect"
	"testing"
)

func TestAllUses(t *testing.T) {
	u := &Unit{
		InterfaceUses:      []string{"SysUtils", "Classes"},
		ImplementationUses: []string{"sysutils", "Db", "CLASSES", "Db"},
	}
	got := u.AllUses()
	want := []string{"SysUtils", "Classes", "Db"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AllUses = %v, want %v", got, want)
	}
}

func TestUnitNameFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"lib/Utils.pas", "Utils"},
		{"src/Core.Db.Client.pas", "Core.Db.Client"},
		{"App.dpr", "App"},
	}
	for _, tt := range tests {
		if got := UnitNameFromPath(tt.path); got != tt.want {
			t.Errorf("UnitNameFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestGraphNodeFirstInsertWins(t *testing.T) {
	g := NewDependencyGraph()
	g.AddNode("Utils", "/a/Utils.pas")
	g.AddNode("UTILS", "/b/Utils.pas")

	if path, _ := g.NodePath("utils"); path != "/a/Utils.pas" {
		t.Errorf("NodePath = %q, want first insertion", path)
	}
	if g.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want 1", g.NodeCount())
	}
}

func TestGraphEdgeDedup(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge("A", "B")
	g.AddEdge("a", "b")
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount = %d, want 1", g.EdgeCount())
	}
	edges := g.Edges()
	if edges[0] != (Edge{From: "a", To: "b"}) {
		t.Errorf("Edges = %v", edges)
	}
}

func TestProjectUnits(t *testing.T) {
	p := NewProject("/repo/app/App.dproj")
	p.AddUnit(&Unit{Name: "Zeta", Path: "/z.pas"})
	p.AddUnit(&Unit{Name: "Alpha", Path: "/a.pas"})
	p.AddUnit(&Unit{Name: "ALPHA", Path: "/other.pas"}) // first wins

	if u, ok := p.Unit("alpha"); !ok || u.Path != "/a.pas" {
		t.Errorf("Unit(alpha) = %+v, %v", u, ok)
	}
	units := p.Units()
	if len(units) != 2 || units[0].Name != "Alpha" || units[1].Name != "Zeta" {
		t.Errorf("Units = %+v", units)
	}
	if p.ProjectDir() != "/repo/app" {
		t.Errorf("ProjectDir = %q", p.ProjectDir())
	}
}
