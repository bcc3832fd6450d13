package condition

import (
	"strings"
	"testing"
)

func newTestEvaluator(symbols ...string) *Evaluator {
	return NewEvaluator(symbols, map[string]int{"CompilerVersion": 35}, nil)
}

func TestFilterActiveTextNoDirectives(t *testing.T) {
	e := newTestEvaluator()
	text := "uses SysUtils, Classes;\nbegin end."
	if got := e.FilterActiveText(text); got != text {
		t.Errorf("Expected text unchanged, got %q", got)
	}
	// Filtering twice gives the same result
	if got := e.FilterActiveText(e.FilterActiveText(text)); got != text {
		t.Errorf("Expected idempotent filtering, got %q", got)
	}
}

func TestFilterIfDefElse(t *testing.T) {
	text := "{$IFDEF DEBUG} A, {$ELSE} B, {$ENDIF} C"

	withDebug := newTestEvaluator("DEBUG").FilterActiveText(text)
	if !strings.Contains(withDebug, "A") || !strings.Contains(withDebug, "C") {
		t.Errorf("Expected A and C with DEBUG, got %q", withDebug)
	}
	if strings.Contains(withDebug, "B") {
		t.Errorf("Expected B excluded with DEBUG, got %q", withDebug)
	}

	withoutDebug := newTestEvaluator().FilterActiveText(text)
	if !strings.Contains(withoutDebug, "B") || !strings.Contains(withoutDebug, "C") {
		t.Errorf("Expected B and C without DEBUG, got %q", withoutDebug)
	}
	if strings.Contains(withoutDebug, "A") {
		t.Errorf("Expected A excluded without DEBUG, got %q", withoutDebug)
	}
}

func TestFilterIfNDef(t *testing.T) {
	text := "{$IFNDEF CONSOLE}Forms,{$ENDIF} SysUtils"
	got := newTestEvaluator().FilterActiveText(text)
	if !strings.Contains(got, "Forms") {
		t.Errorf("Expected Forms included when CONSOLE undefined, got %q", got)
	}
	got = newTestEvaluator("CONSOLE").FilterActiveText(text)
	if strings.Contains(got, "Forms") {
		t.Errorf("Expected Forms excluded when CONSOLE defined, got %q", got)
	}
}

func TestFilterDeepNesting(t *testing.T) {
	// Five levels where only the innermost condition fails: ancestors'
	// other content survives, only the innermost branch is excluded.
	text := `{$IFDEF A}a1
{$IFDEF B}b1
{$IFDEF C}c1
{$IFDEF D}d1
{$IFDEF MISSING}x1{$ENDIF}
d2{$ENDIF}
c2{$ENDIF}
b2{$ENDIF}
a2{$ENDIF}`
	got := newTestEvaluator("A", "B", "C", "D").FilterActiveText(text)
	for _, want := range []string{"a1", "a2", "b1", "b2", "c1", "c2", "d1", "d2"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in output, got %q", want, got)
		}
	}
	if strings.Contains(got, "x1") {
		t.Errorf("Expected innermost branch excluded, got %q", got)
	}
}

func TestFilterElseIfChain(t *testing.T) {
	text := "{$IF DEFINED(A)}one{$ELSEIF DEFINED(B)}two{$ELSE}three{$IFEND}"

	tests := []struct {
		name    string
		symbols []string
		want    string
	}{
		{"first branch", []string{"A"}, "one"},
		{"second branch", []string{"B"}, "two"},
		{"both defined takes first", []string{"A", "B"}, "one"},
		{"else branch", nil, "three"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestEvaluator(tt.symbols...).FilterActiveText(text)
			if strings.TrimSpace(got) != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFilterInactiveParentSuppressesElse(t *testing.T) {
	text := "{$IFDEF OUTER}{$IFDEF INNER}a{$ELSE}b{$ENDIF}{$ENDIF}done"
	got := newTestEvaluator().FilterActiveText(text)
	if strings.Contains(got, "a") || strings.Contains(got, "b") {
		t.Errorf("Expected no nested content when parent inactive, got %q", got)
	}
	if !strings.Contains(got, "done") {
		t.Errorf("Expected trailing content, got %q", got)
	}
}

func TestFilterUnmatchedEndifIgnored(t *testing.T) {
	text := "before{$ENDIF}after"
	got := newTestEvaluator().FilterActiveText(text)
	if !strings.Contains(got, "before") || !strings.Contains(got, "after") {
		t.Errorf("Expected text preserved around stray ENDIF, got %q", got)
	}
}

func TestFilterSecondElseIgnored(t *testing.T) {
	text := "{$IFDEF X}a{$ELSE}b{$ELSE}c{$ENDIF}"
	got := newTestEvaluator().FilterActiveText(text)
	if !strings.Contains(got, "b") {
		t.Errorf("Expected first ELSE branch, got %q", got)
	}
	// The second ELSE is ignored, so "c" stays part of the taken branch.
	if strings.Contains(got, "a") {
		t.Errorf("Expected IFDEF branch excluded, got %q", got)
	}
}

func TestFilterIfOptAlwaysTrue(t *testing.T) {
	text := "{$IFOPT R+}ranges{$ENDIF}rest"
	got := newTestEvaluator().FilterActiveText(text)
	if !strings.Contains(got, "ranges") || !strings.Contains(got, "rest") {
		t.Errorf("Expected IFOPT branch kept, got %q", got)
	}
}

func TestFilterParenStarDirectives(t *testing.T) {
	text := "(*$IFDEF DEBUG*)dbg(*$ENDIF*)tail"
	got := newTestEvaluator("DEBUG").FilterActiveText(text)
	if !strings.Contains(got, "dbg") || !strings.Contains(got, "tail") {
		t.Errorf("Expected (*$...*) directives honored, got %q", got)
	}
	got = newTestEvaluator().FilterActiveText(text)
	if strings.Contains(got, "dbg") {
		t.Errorf("Expected branch excluded, got %q", got)
	}
}

func TestExtractDefinitions(t *testing.T) {
	e := newTestEvaluator()
	text := "{$DEFINE USE_JSON}\n{$IFDEF USE_JSON}Json.Writer,{$ENDIF} SysUtils"

	pass1 := e.ExtractDefinitions(text)
	if strings.Contains(pass1, "DEFINE") {
		t.Errorf("Expected DEFINE removed in first pass, got %q", pass1)
	}
	if !strings.Contains(pass1, "{$IFDEF USE_JSON}") {
		t.Errorf("Expected nesting directives kept in first pass, got %q", pass1)
	}
	if !e.IsDefined("USE_JSON") {
		t.Error("Expected USE_JSON defined after extraction")
	}

	pass2 := e.FilterActiveText(pass1)
	if !strings.Contains(pass2, "Json.Writer") {
		t.Errorf("Expected define to influence later IFDEF, got %q", pass2)
	}
}

func TestExtractDefinitionsInactiveScope(t *testing.T) {
	e := newTestEvaluator()
	text := "{$IFDEF NEVER}{$DEFINE HIDDEN}{$ENDIF}"
	e.ExtractDefinitions(text)
	if e.IsDefined("HIDDEN") {
		t.Error("Expected define inside inactive branch not applied")
	}
}

func TestUndefDirective(t *testing.T) {
	e := newTestEvaluator("LEGACY")
	e.ExtractDefinitions("{$UNDEF LEGACY}")
	if e.IsDefined("LEGACY") {
		t.Error("Expected LEGACY undefined")
	}
}

func TestCloneForFileIsolation(t *testing.T) {
	base := newTestEvaluator("SHARED")
	clone := base.CloneForFile()
	clone.Define("FILE_LOCAL")
	clone.Undefine("SHARED")

	if base.IsDefined("FILE_LOCAL") {
		t.Error("Expected clone define invisible to base")
	}
	if !base.IsDefined("SHARED") {
		t.Error("Expected clone undefine invisible to base")
	}
	if !clone.IsDefined("FILE_LOCAL") || clone.IsDefined("SHARED") {
		t.Error("Expected clone mutations visible to clone")
	}
}

func TestEvaluateDefined(t *testing.T) {
	tests := []struct {
		expr    string
		symbols []string
		want    bool
	}{
		{"DEFINED(A) AND DEFINED(B)", []string{"A", "B"}, true},
		{"DEFINED(A) AND DEFINED(B)", []string{"A"}, false},
		{"DEFINED(A) OR DEFINED(B)", []string{"B"}, true},
		{"NOT DEFINED(X)", nil, true},
		{"NOT DEFINED(X)", []string{"X"}, false},
		{"DECLARED(TThread)", nil, true},
		{"TRUE", nil, true},
		{"FALSE OR TRUE", nil, true},
		{"NOT (DEFINED(A) OR DEFINED(B))", nil, true},
		{"defined(lower)", []string{"LOWER"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e := newTestEvaluator(tt.symbols...)
			if got := e.Evaluate(tt.expr); got != tt.want {
				t.Errorf("Evaluate(%q) with %v = %v, want %v", tt.expr, tt.symbols, got, tt.want)
			}
		})
	}
}

func TestEvaluateComparisons(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"CompilerVersion >= 23", true},
		{"CompilerVersion >= 23.0", true},
		{"CompilerVersion < 23", false},
		{"CompilerVersion = 35", true},
		{"CompilerVersion <> 35", false},
		{"CompilerVersion > $20", true},  // $20 = 32
		{"CompilerVersion <= $23", true}, // $23 = 35
		{"SizeOf(Integer) = 4", true},
		{"SizeOf(Int64) = 8", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e := newTestEvaluator()
			if got := e.Evaluate(tt.expr); got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateSizeOfPointer(t *testing.T) {
	e32 := newTestEvaluator("WIN32", "CPUX86")
	if !e32.Evaluate("SizeOf(Pointer) = 4") {
		t.Error("Expected 4-byte pointers on 32-bit platform")
	}
	e64 := newTestEvaluator("WIN64", "CPUX64")
	if !e64.Evaluate("SizeOf(Pointer) = 8") {
		t.Error("Expected 8-byte pointers on 64-bit platform")
	}
	if !e64.Evaluate("SizeOf(NativeInt) = 8") {
		t.Error("Expected NativeInt pointer-sized")
	}
}

func TestEvaluateFailClosed(t *testing.T) {
	tests := []string{
		"",
		"???",
		"DEFINED(",
		"UnknownVariable >= 10",
		"DEFINED(A) XOR DEFINED(B)",
		"(DEFINED(A)",
	}
	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			e := newTestEvaluator("A", "B")
			if e.Evaluate(expr) {
				t.Errorf("Expected unparsable expression %q to evaluate false", expr)
			}
		})
	}
}

func TestNestingBeyondLimitContinues(t *testing.T) {
	var b strings.Builder
	for i := 0; i < MaxNestingDepth+10; i++ {
		b.WriteString("{$IFDEF A}")
	}
	b.WriteString("deep")
	for i := 0; i < MaxNestingDepth+10; i++ {
		b.WriteString("{$ENDIF}")
	}
	b.WriteString("tail")
	got := newTestEvaluator("A").FilterActiveText(b.String())
	if !strings.Contains(got, "deep") || !strings.Contains(got, "tail") {
		t.Errorf("Expected processing to continue past nesting limit, got %q", got)
	}
}

func TestActiveSymbolsSorted(t *testing.T) {
	e := newTestEvaluator("ZEBRA", "alpha", "Mid")
	got := e.ActiveSymbols()
	want := []string{"ALPHA", "MID", "ZEBRA"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d symbols, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected symbol %d to be %s, got %s", i, want[i], got[i])
		}
	}
}
