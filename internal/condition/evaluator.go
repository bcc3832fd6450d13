// Package condition implements the Pascal conditional-compilation model:
// a scope-stack state machine over {$IFDEF}/{$IF}/{$ELSE}/{$ENDIF} style
// directives and a recursive-descent evaluator for {$IF} boolean
// expressions. Unknown or unparsable conditions fail closed: they evaluate
// false and exclude the guarded branch.
package condition

import (
	"log/slog"
	"sort"
	"strings"
)

// MaxNestingDepth is the soft limit on conditional nesting. Exceeding it
// emits a single diagnostic and processing continues.
const MaxNestingDepth = 200

// Evaluator tracks the set of active compilation symbols and compiler
// numeric variables for one file-parse operation. Symbol lookups are
// case-insensitive. An Evaluator is not safe for concurrent use; give each
// file its own copy via CloneForFile.
type Evaluator struct {
	symbols map[string]bool
	vars    map[string]int
	logger  *slog.Logger
}

// NewEvaluator creates an evaluator seeded with the given active symbols
// and compiler variables.
func NewEvaluator(symbols []string, vars map[string]int, logger *slog.Logger) *Evaluator {
	e := &Evaluator{
		symbols: make(map[string]bool, len(symbols)),
		vars:    make(map[string]int, len(vars)),
		logger:  logger,
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	for _, s := range symbols {
		e.Define(s)
	}
	for name, value := range vars {
		e.vars[strings.ToUpper(name)] = value
	}
	return e
}

// Define adds a symbol to the active set.
func (e *Evaluator) Define(symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol != "" {
		e.symbols[symbol] = true
	}
}

// Undefine removes a symbol from the active set.
func (e *Evaluator) Undefine(symbol string) {
	delete(e.symbols, strings.ToUpper(strings.TrimSpace(symbol)))
}

// IsDefined reports whether a symbol is in the active set.
func (e *Evaluator) IsDefined(symbol string) bool {
	return e.symbols[strings.ToUpper(strings.TrimSpace(symbol))]
}

// CloneForFile returns an isolated copy sharing the same starting symbol
// set. In-file {$DEFINE}/{$UNDEF} directives mutate only the clone, so
// sibling files never observe them.
func (e *Evaluator) CloneForFile() *Evaluator {
	clone := &Evaluator{
		symbols: make(map[string]bool, len(e.symbols)),
		vars:    make(map[string]int, len(e.vars)),
		logger:  e.logger,
	}
	for s := range e.symbols {
		clone.symbols[s] = true
	}
	for name, value := range e.vars {
		clone.vars[name] = value
	}
	return clone
}

// ActiveSymbols returns the sorted active symbol set.
func (e *Evaluator) ActiveSymbols() []string {
	symbols := make([]string, 0, len(e.symbols))
	for s := range e.symbols {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}
