package source

import (
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/condition"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/model"
)

// ParseUnit turns raw unit text into a model.Unit under the configuration
// held by eval. The evaluator must be a per-file clone: in-file defines are
// applied to it during the first pass and must not leak to sibling files.
//
// Include references are collected from the unfiltered text so callers can
// pre-scan them; conditional filtering applies only to the uses clauses.
func ParseUnit(path, content string, eval *condition.Evaluator) *model.Unit {
	stripped := StripComments(content)
	includes := ExtractIncludes(stripped)

	// Two passes: first apply and remove file-local defines so they
	// influence conditionals in the uses sections, then filter.
	withDefines := eval.ExtractDefinitions(stripped)
	filtered := eval.FilterActiveText(withDefines)

	intf, impl := SplitSections(filtered)

	return &model.Unit{
		Path:               path,
		Name:               model.UnitNameFromPath(path),
		InterfaceUses:      ExtractUses(intf),
		ImplementationUses: ExtractUses(impl),
		Includes:           includes,
	}
}
