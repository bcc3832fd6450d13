package model

import (
	"path/filepath"
	"strings"
)

// Unit represents one parsed Pascal source file and its declared dependencies.
// A Unit is immutable once parsed; a changed file produces a new Unit.
type Unit struct {
	// Path is the absolute path of the source file
	Path string `json:"path"`
	// Name is the unit name derived from the filename (without extension)
	Name string `json:"name"`
	// InterfaceUses lists dependency identifiers declared in the interface section
	InterfaceUses []string `json:"interfaceUses"`
	// ImplementationUses lists dependency identifiers declared in the implementation section
	ImplementationUses []string `json:"implementationUses"`
	// Includes lists include-file references found anywhere in the file
	Includes []string `json:"includes,omitempty"`
}

// AllUses returns the combined interface and implementation dependency list,
// deduplicated case-insensitively while preserving declaration order.
func (u *Unit) AllUses() []string {
	seen := make(map[string]bool, len(u.InterfaceUses)+len(u.ImplementationUses))
	combined := make([]string, 0, len(u.InterfaceUses)+len(u.ImplementationUses))
	for _, list := range [][]string{u.InterfaceUses, u.ImplementationUses} {
		for _, name := range list {
			key := strings.ToLower(name)
			if seen[key] {
				continue
			}
			seen[key] = true
			combined = append(combined, name)
		}
	}
	return combined
}

// UnitNameFromPath derives the unit name from a file path.
// For example "lib/Foo.Bar.pas" yields "Foo.Bar".
func UnitNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
