package condition

import (
	"strings"
)

// scope is one level of conditional nesting.
type scope struct {
	// active: the current branch of this scope emits text
	active bool
	// parentActive: the enclosing scope was active when this one opened
	parentActive bool
	// elseAllowed: an {$ELSE} has not been consumed yet
	elseAllowed bool
	// branchTaken: some branch of this scope has already been active
	branchTaken bool
}

// scopeStack is an explicit stack of conditional scopes. Nesting depth is
// author-controlled text, so recursion on the native call stack is not an
// option; the stack has a soft limit with a one-shot diagnostic.
type scopeStack struct {
	scopes      []scope
	depthWarned bool
}

func (s *scopeStack) push(sc scope) bool {
	if len(s.scopes) >= MaxNestingDepth && !s.depthWarned {
		s.depthWarned = true
		s.scopes = append(s.scopes, sc)
		return false
	}
	s.scopes = append(s.scopes, sc)
	return true
}

// pop removes the innermost scope; it returns false on an unmatched ENDIF.
func (s *scopeStack) pop() bool {
	if len(s.scopes) == 0 {
		return false
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
	return true
}

func (s *scopeStack) top() *scope {
	if len(s.scopes) == 0 {
		return nil
	}
	return &s.scopes[len(s.scopes)-1]
}

// active reports whether text at the current position belongs to a true
// branch. With no open scopes everything is active.
func (s *scopeStack) active() bool {
	if len(s.scopes) == 0 {
		return true
	}
	return s.scopes[len(s.scopes)-1].active
}

func (s *scopeStack) depth() int {
	return len(s.scopes)
}

// walkMode selects what the directive walker emits.
type walkMode int

const (
	// filterMode emits only text of active branches and drops every directive
	filterMode walkMode = iota
	// defineMode emits all text unchanged except {$DEFINE}/{$UNDEF}
	// directives, which are applied (when active) and removed
	defineMode
)

// FilterActiveText returns only the text belonging to currently-true
// conditional branches, with all directives removed. Text containing no
// directives passes through unchanged.
func (e *Evaluator) FilterActiveText(text string) string {
	return e.walk(text, filterMode)
}

// ExtractDefinitions applies and removes file-local {$DEFINE}/{$UNDEF}
// directives whose scope is active, leaving all other directives in place.
// A define inside an active branch must influence later {$IFDEF} checks in
// the uses section, which is filtered in a separate pass; splitting the
// traversal this way lets callers re-run FilterActiveText afterward.
func (e *Evaluator) ExtractDefinitions(text string) string {
	return e.walk(text, defineMode)
}

func (e *Evaluator) walk(text string, mode walkMode) string {
	var out strings.Builder
	out.Grow(len(text))
	stack := &scopeStack{}
	pos := 0

	for pos < len(text) {
		d, ok := nextDirective(text, pos)
		if !ok {
			e.emit(&out, text[pos:], stack, mode)
			pos = len(text)
			break
		}
		e.emit(&out, text[pos:d.start], stack, mode)
		e.applyDirective(&out, text, d, stack, mode)
		pos = d.end
	}

	if stack.depth() > 0 {
		e.logger.Warn("unbalanced conditional scopes at end of input",
			"openScopes", stack.depth())
	}
	return out.String()
}

// emit writes a text chunk according to mode and the current activity.
func (e *Evaluator) emit(out *strings.Builder, chunk string, stack *scopeStack, mode walkMode) {
	if mode == defineMode || stack.active() {
		out.WriteString(chunk)
	}
}

func (e *Evaluator) applyDirective(out *strings.Builder, text string, d directive, stack *scopeStack, mode walkMode) {
	switch d.kind {
	case dirIfDef, dirIfNDef:
		defined := e.IsDefined(d.arg)
		if d.kind == dirIfNDef {
			defined = !defined
		}
		e.pushScope(stack, defined)
	case dirIf:
		e.pushScope(stack, e.Evaluate(d.arg))
	case dirIfOpt:
		// Compiler-option state is not modeled; treat as always true but
		// keep the scope so the matching ENDIF balances.
		e.pushScope(stack, true)
	case dirElseIf:
		sc := stack.top()
		if sc == nil {
			e.logger.Warn("ELSEIF without matching IF; directive ignored")
			break
		}
		if sc.branchTaken {
			sc.active = false
		} else {
			sc.active = sc.parentActive && e.Evaluate(d.arg)
			if sc.active {
				sc.branchTaken = true
			}
		}
	case dirElse:
		sc := stack.top()
		if sc == nil {
			e.logger.Warn("ELSE without matching IF; directive ignored")
			break
		}
		if !sc.elseAllowed {
			e.logger.Warn("second ELSE in one conditional scope; directive ignored")
			break
		}
		sc.elseAllowed = false
		sc.active = sc.parentActive && !sc.branchTaken
		if sc.active {
			sc.branchTaken = true
		}
	case dirEndIf:
		if !stack.pop() {
			e.logger.Warn("ENDIF without matching IF; directive ignored")
		}
	case dirDefine:
		if stack.active() {
			e.Define(d.arg)
		}
	case dirUndef:
		if stack.active() {
			e.Undefine(d.arg)
		}
	case dirOther:
		// Non-conditional directive: dropped in filterMode, kept in
		// defineMode along with the surrounding text.
		if mode == defineMode {
			out.WriteString(text[d.start:d.end])
		}
	}

	// Nesting directives stay in the output in defineMode so a later
	// FilterActiveText pass sees them again.
	if mode == defineMode {
		switch d.kind {
		case dirIfDef, dirIfNDef, dirIf, dirIfOpt, dirElseIf, dirElse, dirEndIf:
			out.WriteString(text[d.start:d.end])
		}
	}
}

func (e *Evaluator) pushScope(stack *scopeStack, cond bool) {
	parentActive := stack.active()
	active := parentActive && cond
	ok := stack.push(scope{
		active:       active,
		parentActive: parentActive,
		elseAllowed:  true,
		branchTaken:  active,
	})
	if !ok {
		e.logger.Warn("conditional nesting exceeds limit; continuing",
			"limit", MaxNestingDepth)
	}
}
