package source

import (
	"strings"
	"testing"

	"github.com/GuardianFree/PascalDepsAnalyzer/internal/condition"
)

func TestStripComments(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "line comment",
			src:  "uses SysUtils; // trailing\nnext",
			want: "uses SysUtils; \nnext",
		},
		{
			name: "brace comment",
			src:  "uses {legacy} SysUtils;",
			want: "uses  SysUtils;",
		},
		{
			name: "paren star comment",
			src:  "uses (* old *) Classes;",
			want: "uses  Classes;",
		},
		{
			name: "directive preserved",
			src:  "{$IFDEF DEBUG}A{$ENDIF}",
			want: "{$IFDEF DEBUG}A{$ENDIF}",
		},
		{
			name: "paren star directive preserved",
			src:  "(*$IFDEF DEBUG*)A(*$ENDIF*)",
			want: "(*$IFDEF DEBUG*)A(*$ENDIF*)",
		},
		{
			name: "string literal untouched",
			src:  "s := 'not a {comment} // really';",
			want: "s := 'not a {comment} // really';",
		},
		{
			name: "multiline brace comment",
			src:  "a{first\nsecond}b",
			want: "ab",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripComments(tt.src); got != tt.want {
				t.Errorf("StripComments(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestSplitSections(t *testing.T) {
	src := `unit Foo;

interface

uses SysUtils;

type TFoo = class end;

implementation

uses Classes;

end.`
	intf, impl := SplitSections(src)
	if !strings.Contains(intf, "SysUtils") || strings.Contains(intf, "Classes") {
		t.Errorf("Unexpected interface section: %q", intf)
	}
	if !strings.Contains(impl, "Classes") || strings.Contains(impl, "SysUtils") {
		t.Errorf("Unexpected implementation section: %q", impl)
	}
}

func TestSplitSectionsProgram(t *testing.T) {
	src := "program Demo;\nuses Forms, MainUnit;\nbegin\nend."
	intf, impl := SplitSections(src)
	if !strings.Contains(intf, "MainUnit") {
		t.Errorf("Expected program text in public section, got %q", intf)
	}
	if impl != "" {
		t.Errorf("Expected empty implementation for program, got %q", impl)
	}
}

func TestSplitSectionsInterfaceTypeKeyword(t *testing.T) {
	// "interface" as a type keyword appears only after the section keyword,
	// so the first standalone occurrence wins.
	src := "unit U;\ninterface\ntype IFoo = interface end;\nimplementation\nend."
	intf, impl := SplitSections(src)
	if !strings.Contains(intf, "IFoo") {
		t.Errorf("Expected type declaration in interface, got %q", intf)
	}
	if strings.Contains(impl, "IFoo") {
		t.Errorf("Expected implementation without interface content, got %q", impl)
	}
}

func TestExtractUses(t *testing.T) {
	tests := []struct {
		name    string
		section string
		want    []string
	}{
		{
			name:    "simple",
			section: "uses SysUtils, Classes;",
			want:    []string{"SysUtils", "Classes"},
		},
		{
			name:    "multiline with namespaces",
			section: "uses\n  System.SysUtils,\n  Vcl.Forms,\n  App.Main;",
			want:    []string{"System.SysUtils", "Vcl.Forms", "App.Main"},
		},
		{
			name:    "in clauses",
			section: "uses\n  Main in 'Main.pas',\n  Utils in '..\\shared\\Utils.pas';",
			want:    []string{"Main", "Utils"},
		},
		{
			name:    "no uses clause",
			section: "type TFoo = class end;",
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractUses(tt.section)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractUses = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Entry %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractIncludes(t *testing.T) {
	src := `{$I config.inc}
{$INCLUDE 'shared.inc'}
{$I+}
{$I %DATE%}
{$IFDEF X}{$ENDIF}`
	got := ExtractIncludes(src)
	want := []string{"config.inc", "shared.inc"}
	if len(got) != len(want) {
		t.Fatalf("ExtractIncludes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Include %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseUnit(t *testing.T) {
	content := `unit Orders;

{$I defs.inc}

interface

uses
  System.SysUtils,
  {$IFDEF USE_DB}
  Data.DB,
  {$ENDIF}
  Orders.Types;

implementation

uses Orders.Storage;

end.`

	eval := condition.NewEvaluator([]string{"USE_DB"}, nil, nil)
	unit := ParseUnit("/repo/src/Orders.pas", content, eval.CloneForFile())

	if unit.Name != "Orders" {
		t.Errorf("Expected unit name Orders, got %q", unit.Name)
	}
	wantIntf := []string{"System.SysUtils", "Data.DB", "Orders.Types"}
	if len(unit.InterfaceUses) != len(wantIntf) {
		t.Fatalf("InterfaceUses = %v, want %v", unit.InterfaceUses, wantIntf)
	}
	for i := range wantIntf {
		if unit.InterfaceUses[i] != wantIntf[i] {
			t.Errorf("InterfaceUses[%d] = %q, want %q", i, unit.InterfaceUses[i], wantIntf[i])
		}
	}
	if len(unit.ImplementationUses) != 1 || unit.ImplementationUses[0] != "Orders.Storage" {
		t.Errorf("ImplementationUses = %v", unit.ImplementationUses)
	}
	if len(unit.Includes) != 1 || unit.Includes[0] != "defs.inc" {
		t.Errorf("Includes = %v", unit.Includes)
	}
}

func TestParseUnitConditionalExcluded(t *testing.T) {
	content := `unit U;
interface
uses
  Base{$IFDEF EXTRA}, ExtraUnit{$ENDIF};
implementation
end.`
	eval := condition.NewEvaluator(nil, nil, nil)
	unit := ParseUnit("/x/U.pas", content, eval.CloneForFile())
	if len(unit.InterfaceUses) != 1 || unit.InterfaceUses[0] != "Base" {
		t.Errorf("Expected only Base, got %v", unit.InterfaceUses)
	}
}

func TestParseUnitLocalDefineAffectsUses(t *testing.T) {
	content := `unit U;
{$DEFINE WANT_JSON}
interface
uses
  Base{$IFDEF WANT_JSON}, Json.Reader{$ENDIF};
implementation
end.`
	eval := condition.NewEvaluator(nil, nil, nil)
	unit := ParseUnit("/x/U.pas", content, eval.CloneForFile())
	if len(unit.InterfaceUses) != 2 || unit.InterfaceUses[1] != "Json.Reader" {
		t.Errorf("Expected local define to enable Json.Reader, got %v", unit.InterfaceUses)
	}
}
