package condition

import (
	"fmt"
	"strconv"
	"strings"
)

// Fixed sizes for SizeOf() operands in {$IF} comparisons. Pointer-sized
// types are resolved against the active platform symbols.
var typeSizes = map[string]int{
	"BYTE":     1,
	"SHORTINT": 1,
	"BOOLEAN":  1,
	"ANSICHAR": 1,
	"WORD":     2,
	"SMALLINT": 2,
	"WIDECHAR": 2,
	"CHAR":     2,
	"INTEGER":  4,
	"CARDINAL": 4,
	"LONGINT":  4,
	"LONGWORD": 4,
	"SINGLE":   4,
	"INT64":    8,
	"UINT64":   8,
	"DOUBLE":   8,
	"CURRENCY": 8,
	"EXTENDED": 10,
}

var pointerSizedTypes = map[string]bool{
	"POINTER":    true,
	"NATIVEINT":  true,
	"NATIVEUINT": true,
	"INTPTR":     true,
	"UINTPTR":    true,
}

// Evaluate parses and evaluates a conditional expression such as
// "DEFINED(DEBUG) AND (CompilerVersion >= 23)". Expressions that cannot be
// parsed evaluate false and are logged: an unknown condition excludes code
// rather than including it.
func (e *Evaluator) Evaluate(expression string) bool {
	result, err := e.evaluate(expression)
	if err != nil {
		e.logger.Warn("cannot evaluate conditional expression; branch excluded",
			"expression", expression, "error", err.Error())
		return false
	}
	return result
}

func (e *Evaluator) evaluate(expression string) (bool, error) {
	tokens, err := tokenize(expression)
	if err != nil {
		return false, err
	}
	p := &exprParser{eval: e, tokens: tokens}
	result, err := p.parseOr()
	if err != nil {
		return false, err
	}
	if !p.atEnd() {
		return false, fmt.Errorf("unexpected token %q", p.peek().text)
	}
	return result, nil
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokLParen
	tokRParen
	tokOp // comparison operator
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(expression string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(expression) {
		c := expression[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
		case c == '>' || c == '<' || c == '=':
			op := string(c)
			if i+1 < len(expression) {
				two := expression[i : i+2]
				if two == ">=" || two == "<=" || two == "<>" {
					op = two
				}
			}
			tokens = append(tokens, token{tokOp, op})
			i += len(op)
		case c == '$':
			j := i + 1
			for j < len(expression) && isHexDigit(expression[j]) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("malformed hex literal at %q", expression[i:])
			}
			tokens = append(tokens, token{tokNumber, expression[i:j]})
			i = j
		case c >= '0' && c <= '9':
			j := i
			for j < len(expression) && (expression[j] >= '0' && expression[j] <= '9' || expression[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, expression[i:j]})
			i = j
		case isIdentStart(c):
			j := i
			for j < len(expression) && isIdentPart(expression[j]) {
				j++
			}
			tokens = append(tokens, token{tokIdent, expression[i:j]})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", string(c))
		}
	}
	return tokens, nil
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '.'
}

// exprParser is a recursive-descent parser with precedence, lowest first:
// OR, AND, unary NOT, parentheses, atoms.
type exprParser struct {
	eval   *Evaluator
	tokens []token
	pos    int
}

func (p *exprParser) atEnd() bool { return p.pos >= len(p.tokens) }

func (p *exprParser) peek() token {
	if p.atEnd() {
		return token{}
	}
	return p.tokens[p.pos]
}

func (p *exprParser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *exprParser) acceptKeyword(keyword string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, keyword) {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return token{}, fmt.Errorf("expected %s, got %q", what, t.text)
	}
	return t, nil
}

func (p *exprParser) parseOr() (bool, error) {
	left, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for p.acceptKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		left = left || right
	}
	return left, nil
}

func (p *exprParser) parseAnd() (bool, error) {
	left, err := p.parseNot()
	if err != nil {
		return false, err
	}
	for p.acceptKeyword("AND") {
		right, err := p.parseNot()
		if err != nil {
			return false, err
		}
		left = left && right
	}
	return left, nil
}

func (p *exprParser) parseNot() (bool, error) {
	if p.acceptKeyword("NOT") {
		inner, err := p.parseNot()
		if err != nil {
			return false, err
		}
		return !inner, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (bool, error) {
	t := p.peek()
	switch {
	case t.kind == tokLParen:
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return false, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return false, err
		}
		return inner, nil
	case t.kind == tokIdent && strings.EqualFold(t.text, "DEFINED"):
		p.pos++
		sym, err := p.parseCallArg()
		if err != nil {
			return false, err
		}
		return p.eval.IsDefined(sym), nil
	case t.kind == tokIdent && strings.EqualFold(t.text, "DECLARED"):
		// Declaration lookup would need full semantic analysis; assume the
		// identifier exists so DECLARED() guards never exclude code.
		p.pos++
		if _, err := p.parseCallArg(); err != nil {
			return false, err
		}
		return true, nil
	case t.kind == tokIdent && strings.EqualFold(t.text, "TRUE"):
		p.pos++
		return true, nil
	case t.kind == tokIdent && strings.EqualFold(t.text, "FALSE"):
		p.pos++
		return false, nil
	}
	return p.parseComparison()
}

// parseCallArg consumes "(ident)" after DEFINED/DECLARED.
func (p *exprParser) parseCallArg() (string, error) {
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return "", err
	}
	ident, err := p.expect(tokIdent, "identifier")
	if err != nil {
		return "", err
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return "", err
	}
	return ident.text, nil
}

func (p *exprParser) parseComparison() (bool, error) {
	left, err := p.parseOperand()
	if err != nil {
		return false, err
	}
	op, err := p.expect(tokOp, "comparison operator")
	if err != nil {
		return false, err
	}
	right, err := p.parseOperand()
	if err != nil {
		return false, err
	}
	switch op.text {
	case ">=":
		return left >= right, nil
	case "<=":
		return left <= right, nil
	case "<>":
		return left != right, nil
	case ">":
		return left > right, nil
	case "<":
		return left < right, nil
	case "=":
		return left == right, nil
	}
	return false, fmt.Errorf("unknown operator %q", op.text)
}

// parseOperand resolves a numeric operand: hexadecimal literal, decimal
// literal, SizeOf(Type), then a named compiler variable, in that order.
func (p *exprParser) parseOperand() (int64, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		if strings.HasPrefix(t.text, "$") {
			return strconv.ParseInt(t.text[1:], 16, 64)
		}
		// Version variables compare against literals like 23.0; the
		// fractional part never matters for these comparisons.
		if i := strings.IndexByte(t.text, '.'); i >= 0 {
			return strconv.ParseInt(t.text[:i], 10, 64)
		}
		return strconv.ParseInt(t.text, 10, 64)
	case tokIdent:
		if strings.EqualFold(t.text, "SIZEOF") {
			typeName, err := p.parseCallArg()
			if err != nil {
				return 0, err
			}
			return p.sizeOf(typeName)
		}
		name := strings.ToUpper(t.text)
		if value, ok := p.eval.vars[name]; ok {
			return int64(value), nil
		}
		return 0, fmt.Errorf("unknown compiler variable %q", t.text)
	}
	return 0, fmt.Errorf("expected operand, got %q", t.text)
}

func (p *exprParser) sizeOf(typeName string) (int64, error) {
	upper := strings.ToUpper(typeName)
	if pointerSizedTypes[upper] {
		if p.eval.is64Bit() {
			return 8, nil
		}
		return 4, nil
	}
	if size, ok := typeSizes[upper]; ok {
		return int64(size), nil
	}
	return 0, fmt.Errorf("unknown type %q in SizeOf", typeName)
}

// is64Bit reports whether a 64-bit platform symbol is active.
func (e *Evaluator) is64Bit() bool {
	return e.IsDefined("CPUX64") || e.IsDefined("WIN64") || e.IsDefined("CPU64BITS")
}
