package condition

import (
	"strings"
)

// directiveKind classifies a compiler directive for the scope machine.
type directiveKind int

const (
	dirOther directiveKind = iota
	dirIfDef
	dirIfNDef
	dirIf
	dirIfOpt
	dirElseIf
	dirElse
	dirEndIf
	dirDefine
	dirUndef
)

// directive is one {$...} or (*$...*) occurrence in the source text.
type directive struct {
	kind directiveKind
	arg  string
	// start and end are byte offsets of the directive including delimiters
	start, end int
}

// nextDirective finds the next compiler directive at or after offset from.
// It returns the directive and true, or false when no further directive
// exists. Braces not followed by '$' are treated as plain text; comment
// stripping has already happened by the time text reaches this package.
func nextDirective(text string, from int) (directive, bool) {
	for i := from; i < len(text); i++ {
		switch text[i] {
		case '{':
			if i+1 < len(text) && text[i+1] == '$' {
				end := strings.IndexByte(text[i:], '}')
				if end < 0 {
					return directive{}, false
				}
				d := parseDirective(text[i+2:i+end], i, i+end+1)
				return d, true
			}
		case '(':
			if strings.HasPrefix(text[i:], "(*$") {
				end := strings.Index(text[i:], "*)")
				if end < 0 {
					return directive{}, false
				}
				d := parseDirective(text[i+3:i+end], i, i+end+2)
				return d, true
			}
		}
	}
	return directive{}, false
}

// parseDirective splits a directive body into keyword and argument and maps
// the keyword onto a kind.
func parseDirective(body string, start, end int) directive {
	body = strings.TrimSpace(body)
	keyword := body
	arg := ""
	if i := strings.IndexAny(body, " \t"); i >= 0 {
		keyword = body[:i]
		arg = strings.TrimSpace(body[i+1:])
	}

	d := directive{arg: arg, start: start, end: end}
	switch strings.ToUpper(keyword) {
	case "IFDEF":
		d.kind = dirIfDef
	case "IFNDEF":
		d.kind = dirIfNDef
	case "IF":
		d.kind = dirIf
	case "IFOPT":
		d.kind = dirIfOpt
	case "ELSEIF":
		d.kind = dirElseIf
	case "ELSE":
		d.kind = dirElse
	case "ENDIF", "IFEND":
		d.kind = dirEndIf
	case "DEFINE":
		d.kind = dirDefine
	case "UNDEF", "UNDEFINE":
		d.kind = dirUndef
	default:
		d.kind = dirOther
	}
	return d
}
