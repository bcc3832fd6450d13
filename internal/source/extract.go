// Package source extracts dependency-relevant text from raw Pascal source:
// it strips comments while preserving compiler directives, splits a unit
// into interface and implementation sections, and pulls uses clauses and
// include references out of the text.
package source

import (
	"regexp"
	"strings"
)

// StripComments removes //, { } and (* *) comments from src while keeping
// compiler directives ({$...} and (*$...*)) and the contents of string
// literals intact.
func StripComments(src string) string {
	var out strings.Builder
	out.Grow(len(src))
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\'':
			// String literal; '' inside is an escaped quote and simply
			// reads as two adjacent literals.
			j := i + 1
			for j < len(src) && src[j] != '\'' && src[j] != '\n' {
				j++
			}
			if j < len(src) && src[j] == '\'' {
				j++
			}
			out.WriteString(src[i:j])
			i = j
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			j := strings.IndexByte(src[i:], '\n')
			if j < 0 {
				i = len(src)
			} else {
				i += j // keep the newline
			}
		case c == '{':
			if i+1 < len(src) && src[i+1] == '$' {
				j := strings.IndexByte(src[i:], '}')
				if j < 0 {
					out.WriteString(src[i:])
					i = len(src)
				} else {
					out.WriteString(src[i : i+j+1])
					i += j + 1
				}
				break
			}
			j := strings.IndexByte(src[i:], '}')
			if j < 0 {
				i = len(src)
			} else {
				i += j + 1
			}
		case c == '(' && i+1 < len(src) && src[i+1] == '*':
			if strings.HasPrefix(src[i:], "(*$") {
				j := strings.Index(src[i:], "*)")
				if j < 0 {
					out.WriteString(src[i:])
					i = len(src)
				} else {
					out.WriteString(src[i : i+j+2])
					i += j + 2
				}
				break
			}
			j := strings.Index(src[i:], "*)")
			if j < 0 {
				i = len(src)
			} else {
				i += j + 2
			}
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

var (
	interfaceRe      = regexp.MustCompile(`(?im)^\s*interface\b`)
	implementationRe = regexp.MustCompile(`(?im)^\s*implementation\b`)
	usesRe           = regexp.MustCompile(`(?i)\buses\b`)
	includeRe        = regexp.MustCompile(`\{\$(?:I|INCLUDE)\s+([^}]+)\}`)
)

// SplitSections splits comment-stripped unit text into its interface and
// implementation sections. Program files (.dpr) have no sections; the whole
// text counts as the public section then.
func SplitSections(src string) (intf, impl string) {
	intfLoc := interfaceRe.FindStringIndex(src)
	if intfLoc == nil {
		return src, ""
	}
	rest := src[intfLoc[1]:]
	implLoc := implementationRe.FindStringIndex(rest)
	if implLoc == nil {
		return rest, ""
	}
	return rest[:implLoc[0]], rest[implLoc[1]:]
}

// ExtractUses returns the identifiers of a section's uses clause, in
// declaration order. "Foo in 'foo.pas'" clauses from program files reduce
// to the bare identifier.
func ExtractUses(section string) []string {
	loc := usesRe.FindStringIndex(section)
	if loc == nil {
		return nil
	}
	end := strings.IndexByte(section[loc[1]:], ';')
	if end < 0 {
		return nil
	}
	clause := section[loc[1] : loc[1]+end]

	var names []string
	for _, part := range strings.Split(clause, ",") {
		name := strings.TrimSpace(part)
		// Drop "in 'file.pas'" qualifiers.
		if i := inClauseIndex(name); i >= 0 {
			name = strings.TrimSpace(name[:i])
		}
		if isIdentifier(name) {
			names = append(names, name)
		}
	}
	return names
}

// inClauseIndex finds a word-boundary " in " inside a uses entry.
func inClauseIndex(entry string) int {
	lower := strings.ToLower(entry)
	for i := 0; i+4 <= len(lower); i++ {
		if lower[i:i+2] == "in" &&
			i > 0 && (lower[i-1] == ' ' || lower[i-1] == '\t' || lower[i-1] == '\n' || lower[i-1] == '\r') &&
			(lower[i+2] == ' ' || lower[i+2] == '\t' || lower[i+2] == '\'' || lower[i+2] == '\n' || lower[i+2] == '\r') {
			return i
		}
	}
	return -1
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9', c == '.':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// ExtractIncludes returns include-file references ({$I file} or
// {$INCLUDE file}) found anywhere in src. Compiler switches such as {$I+}
// and {$I-} and percent-quoted compile-time values ({$I %DATE%}) are not
// include references.
func ExtractIncludes(src string) []string {
	var includes []string
	for _, m := range includeRe.FindAllStringSubmatch(src, -1) {
		name := strings.TrimSpace(m[1])
		name = strings.Trim(name, "'\"")
		if name == "" || name[0] == '+' || name[0] == '-' || name[0] == '%' {
			continue
		}
		includes = append(includes, name)
	}
	return includes
}
