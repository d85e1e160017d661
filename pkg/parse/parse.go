// Package parse implements the formula tokenizer and infix parser.
//
// Parse turns formula text into an infix token.Stack. The stack keeps the
// parentheses and commas of the text; operator precedence is applied later,
// when the postfix generator converts the stack. Parse validates everything
// that can be checked without knowing operator signatures: literals, the
// placement of operands and operators, parentheses and references.
//
// The grammar, informally:
//
//	expr      = operand { infix-op operand }
//	operand   = { prefix-op } ( number | string | boolean | ref | call | "(" expr ")" )
//	call      = name [ "(" [ expr { "," expr } ] ")" ]
//	ref       = [ qualifier "::" ] ( ("col" | "column" | "row") ( index | label )
//	          | "cell" index "," index | ("set" | "subset") name )
//	          | "table" [ index | label ]
//	qualifier = name | quoted-string
package parse

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"src.tabl.sh/pkg/diag"
	"src.tabl.sh/pkg/ops"
	"src.tabl.sh/pkg/token"
)

// Source is formula text together with a name used in error messages, such
// as the address of the element the formula is set on.
type Source struct {
	Name string
	Code string
}

// SourceForTest returns a Source used for testing.
func SourceForTest(code string) Source {
	return Source{Name: "[test]", Code: code}
}

// Resolver supplies what Parse needs to know about the context a formula is
// parsed in.
type Resolver interface {
	// Registry returns the operators of the context.
	Registry() *ops.Registry
	// ResolveRef finds the element a reference denotes. The Elem field of
	// ref is not set.
	ResolveRef(kind token.Kind, ref token.Ref) (token.ElementID, bool)
}

// Parse parses src into an infix stack. The returned error is always of type
// *Error if it is not nil.
func Parse(src Source, r Resolver) (token.Stack, error) {
	ps := &parser{src: src, text: src.Code, reg: r.Registry(), res: r, operand: true}
	if err := ps.parse(); err != nil {
		return nil, err
	}
	return ps.out, nil
}

// parser maintains the mutable state of parsing.
type parser struct {
	src  Source
	text string
	pos  int
	reg  *ops.Registry
	res  Resolver
	out  token.Stack
	// Whether an operand is expected next.
	operand bool
	parens  []paren
}

// paren is an open parenthesis.
type paren struct {
	pos int
	// Index of the function token in out, or -1 for a grouping parenthesis.
	fn     int
	commas int
}

func (ps *parser) parse() *Error {
	for {
		ps.skipSpace()
		if ps.pos == len(ps.text) {
			break
		}
		if err := ps.step(); err != nil {
			return err
		}
	}
	if n := len(ps.parens); n > 0 {
		p := ps.parens[n-1]
		return ps.errorAt(UnbalancedParentheses, p.pos, p.pos+1, "unclosed parenthesis")
	}
	if ps.operand {
		if len(ps.out) == 0 {
			return ps.errorAt(EmptyExpression, 0, len(ps.text), "empty expression")
		}
		return ps.errorAt(MissingOperand, len(ps.text), len(ps.text), "missing operand at end of expression")
	}
	return nil
}

func (ps *parser) step() *Error {
	r, _ := utf8.DecodeRuneInString(ps.text[ps.pos:])
	switch {
	case isDigit(ps.peek()) || ps.peek() == '.' && isDigit(ps.peekAt(1)):
		return ps.number()
	case r == '"' || r == '\'':
		return ps.quoted()
	case isIdentStart(r):
		return ps.word()
	case r == '(':
		return ps.lparen()
	case r == ')':
		return ps.rparen()
	case r == ',':
		return ps.comma()
	}
	return ps.symbol()
}

func (ps *parser) errorAt(code StatusCode, from, to int, format string, args ...any) *Error {
	return NewError(code, ps.src, diag.Ranging{From: from, To: to}, format, args...)
}

func (ps *parser) emitOperand(t token.Token) *Error {
	if !ps.operand {
		return ps.errorAt(InvalidOperandLocation, t.Pos, t.End,
			"unexpected operand %s, missing an operator before it", ps.text[t.Pos:t.End])
	}
	ps.out.Push(t)
	ps.operand = false
	return nil
}

func (ps *parser) number() *Error {
	start := ps.pos
	ps.digits()
	if ps.peek() == '.' {
		ps.pos++
		ps.digits()
	}
	if c := ps.peek(); c == 'e' || c == 'E' {
		ps.pos++
		if c := ps.peek(); c == '+' || c == '-' {
			ps.pos++
		}
		if !isDigit(ps.peek()) {
			return ps.badNumber(start)
		}
		ps.digits()
	}
	if c := ps.peek(); c == '.' || isIdentByte(c) {
		return ps.badNumber(start)
	}
	f, err := strconv.ParseFloat(ps.text[start:ps.pos], 64)
	if err != nil {
		return ps.badNumber(start)
	}
	return ps.emitOperand(token.Token{Kind: token.Numeric, Num: f, Pos: start, End: ps.pos})
}

func (ps *parser) badNumber(start int) *Error {
	for ps.pos < len(ps.text) && (isIdentByte(ps.text[ps.pos]) || ps.text[ps.pos] == '.') {
		ps.pos++
	}
	return ps.errorAt(InvalidNumericExpression, start, ps.pos, "invalid number %s", ps.text[start:ps.pos])
}

func (ps *parser) quoted() *Error {
	start := ps.pos
	s, err := ps.stringLiteral()
	if err != nil {
		return err
	}
	if ps.qualifier() {
		return ps.qualified(s, start)
	}
	return ps.emitOperand(token.Token{Kind: token.String, Str: s, Pos: start, End: ps.pos})
}

// stringLiteral lexes a single- or double-quoted string. A backslash escapes
// the next character; \n and \t stand for a newline and a tab.
func (ps *parser) stringLiteral() (string, *Error) {
	start := ps.pos
	q := ps.text[ps.pos]
	ps.pos++
	var sb strings.Builder
	for ps.pos < len(ps.text) {
		c := ps.text[ps.pos]
		switch {
		case c == q:
			ps.pos++
			return sb.String(), nil
		case c == '\\' && ps.pos+1 < len(ps.text):
			switch e := ps.text[ps.pos+1]; e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(e)
			}
			ps.pos += 2
		default:
			sb.WriteByte(c)
			ps.pos++
		}
	}
	return "", ps.errorAt(SingletonQuote, start, len(ps.text), "unterminated string literal")
}

func (ps *parser) word() *Error {
	start := ps.pos
	w := ps.ident()
	if ps.qualifier() {
		return ps.qualified(w, start)
	}
	switch lw := strings.ToLower(w); lw {
	case "true", "false":
		return ps.emitOperand(token.Token{Kind: token.Boolean, Bool: lw == "true", Pos: start, End: ps.pos})
	case "col", "column", "row", "cell", "table", "set", "subset":
		return ps.reference("", lw, start)
	}
	return ps.operatorWord(w, start)
}

func (ps *parser) operatorWord(w string, start int) *Error {
	end := ps.pos
	if ps.operand {
		if _, ok := ps.reg.LookupPrefix(w); ok {
			ps.pushPrefix(strings.ToLower(w), start, end)
			return nil
		}
	}
	op, ok := ps.reg.Lookup(w)
	if !ok {
		return ps.errorAt(NoSuchOperator, start, end, "no such operator: %s", w)
	}
	switch {
	case op.Infix:
		if ps.operand {
			return ps.errorAt(MissingOperand, start, end, "%s is missing its left operand", w)
		}
		ps.pushInfix(op, start, end)
		return nil
	case op.Prefix:
		return ps.errorAt(InvalidOperandLocation, start, end,
			"unexpected %s, missing an operator before it", w)
	}
	return ps.call(op, start, end)
}

// call parses a function call whose name has been consumed.
func (ps *parser) call(op *ops.Operator, start, end int) *Error {
	if !ps.operand {
		return ps.errorAt(InvalidOperandLocation, start, end,
			"unexpected call to %s, missing an operator before it", op.Label)
	}
	ps.out.Push(token.Token{Kind: token.Operator, Str: op.Label, Func: true, Pos: start, End: end})
	save := ps.pos
	ps.skipSpace()
	if ps.peek() != '(' {
		// A call without parentheses, as in "pi".
		ps.pos = save
		ps.operand = false
		return nil
	}
	ps.parens = append(ps.parens, paren{pos: ps.pos, fn: len(ps.out) - 1})
	ps.out.Push(token.Token{Kind: token.LParen, Pos: ps.pos, End: ps.pos + 1})
	ps.pos++
	return nil
}

func (ps *parser) pushPrefix(spelling string, start, end int) {
	ps.out.Push(token.Token{Kind: token.Operator, Str: spelling, Argc: 1, Unary: true, Pos: start, End: end})
}

func (ps *parser) pushInfix(op *ops.Operator, start, end int) {
	ps.out.Push(token.Token{Kind: token.Operator, Str: op.Label, Argc: 2, Pos: start, End: end})
	ps.operand = true
}

func (ps *parser) lparen() *Error {
	if !ps.operand {
		return ps.errorAt(InvalidOperandLocation, ps.pos, ps.pos+1,
			"unexpected (, missing an operator before it")
	}
	ps.parens = append(ps.parens, paren{pos: ps.pos, fn: -1})
	ps.out.Push(token.Token{Kind: token.LParen, Pos: ps.pos, End: ps.pos + 1})
	ps.pos++
	return nil
}

func (ps *parser) rparen() *Error {
	n := len(ps.parens)
	if n == 0 {
		return ps.errorAt(UnbalancedParentheses, ps.pos, ps.pos+1, "unmatched )")
	}
	p := ps.parens[n-1]
	last := ps.out[len(ps.out)-1]
	empty := last.Kind == token.LParen
	if ps.operand && !(empty && p.fn >= 0) {
		return ps.errorAt(MissingOperand, ps.pos, ps.pos+1, "missing operand before )")
	}
	ps.parens = ps.parens[:n-1]
	if p.fn >= 0 {
		argc := 0
		if !empty {
			argc = p.commas + 1
		}
		ps.out[p.fn].Argc = argc
	}
	ps.out.Push(token.Token{Kind: token.RParen, Pos: ps.pos, End: ps.pos + 1})
	ps.pos++
	ps.operand = false
	return nil
}

func (ps *parser) comma() *Error {
	n := len(ps.parens)
	if n == 0 || ps.parens[n-1].fn < 0 {
		return ps.errorAt(InvalidOperandLocation, ps.pos, ps.pos+1, "unexpected , outside of a function call")
	}
	if ps.operand {
		return ps.errorAt(MissingOperand, ps.pos, ps.pos+1, "missing argument before ,")
	}
	ps.parens[n-1].commas++
	ps.out.Push(token.Token{Kind: token.Comma, Pos: ps.pos, End: ps.pos + 1})
	ps.pos++
	ps.operand = true
	return nil
}

func (ps *parser) symbol() *Error {
	start := ps.pos
	sym, ok := ps.reg.MatchSymbol(ps.text[ps.pos:])
	if !ok {
		r, size := utf8.DecodeRuneInString(ps.text[ps.pos:])
		return ps.errorAt(NoSuchOperator, start, start+size, "unexpected character %q", r)
	}
	ps.pos += len(sym)
	if ps.operand {
		if _, ok := ps.reg.LookupPrefix(sym); !ok {
			return ps.errorAt(MissingOperand, start, ps.pos, "%s is missing its left operand", sym)
		}
		ps.pushPrefix(sym, start, ps.pos)
		return nil
	}
	op, ok := ps.reg.Lookup(sym)
	if !ok || !op.Infix {
		return ps.errorAt(InvalidOperandLocation, start, ps.pos,
			"unexpected %s, missing an operator before it", sym)
	}
	ps.pushInfix(op, start, ps.pos)
	return nil
}

func (ps *parser) peek() byte { return ps.peekAt(0) }

func (ps *parser) peekAt(i int) byte {
	if ps.pos+i >= len(ps.text) {
		return 0
	}
	return ps.text[ps.pos+i]
}

func (ps *parser) skipSpace() {
	for ps.pos < len(ps.text) {
		r, size := utf8.DecodeRuneInString(ps.text[ps.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		ps.pos += size
	}
}

func (ps *parser) digits() {
	for isDigit(ps.peek()) {
		ps.pos++
	}
}

func (ps *parser) ident() string {
	start := ps.pos
	for ps.pos < len(ps.text) {
		r, size := utf8.DecodeRuneInString(ps.text[ps.pos:])
		if !isIdentStart(r) && !unicode.IsDigit(r) && !(r == '.' && ps.pos > start) {
			break
		}
		ps.pos += size
	}
	return ps.text[start:ps.pos]
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }

func isIdentByte(c byte) bool {
	return c == '_' || isDigit(c) || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c >= utf8.RuneSelf
}
