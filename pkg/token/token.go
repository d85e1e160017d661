// Package token defines the tokens that flow through the derivation engine:
// the parser produces them, the postfix generator reorders them and the
// evaluator consumes and produces them.
package token

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the kind of a Token.
type Kind uint8

// Token kinds.
const (
	Empty Kind = iota
	Numeric
	String
	Boolean
	Operator
	LParen
	RParen
	Comma
	ColumnRef
	RowRef
	CellRef
	TableRef
	SubsetRef
	Pending
	Error
)

// IsRef reports whether k is one of the reference kinds.
func (k Kind) IsRef() bool {
	return ColumnRef <= k && k <= SubsetRef
}

// IsValue reports whether k is a scalar value kind, including Empty.
func (k Kind) IsValue() bool {
	return k <= Boolean
}

// ErrorCode classifies runtime value errors, which are carried as data rather
// than returned as Go errors.
type ErrorCode uint8

// Error codes.
const (
	NoError ErrorCode = iota
	DivideByZero
	NaN
	Infinity
	ReferenceRequired
	TypeMismatch
	InvalidArgument
	NotAvailable
	Cancelled
)

// ElementID identifies an element in a store. The zero value means "not
// resolved".
type ElementID int64

// Ref describes a reference as written in a formula, together with the
// element it was resolved to when the formula was parsed.
type Ref struct {
	// Qualifier is the table name in "Name::col 1"; empty for the acting
	// table.
	Qualifier string
	// Index is the 1-based index for row and column references, and the row
	// index for cell references.
	Index int
	// Index2 is the column index for cell references.
	Index2 int
	// Label is set when the element is addressed by name instead of index.
	Label string
	// Elem is the element the reference resolved to.
	Elem ElementID
}

// Token is a tagged value. Only the fields relevant to Kind are meaningful.
type Token struct {
	Kind Kind
	Num  float64
	// Str holds the content of a String token, the label of an Operator token
	// and the message of an Error token.
	Str  string
	Bool bool
	Code ErrorCode
	Ref  Ref
	// Argc is the number of arguments an Operator token consumes in postfix
	// form.
	Argc int
	// Unary marks an Operator token that is a prefix operator.
	Unary bool
	// Func marks an Operator token written with function-call syntax.
	Func bool
	// Pos and End delimit the token in the source text.
	Pos, End int
}

// Num returns a Numeric token.
func Num(f float64) Token { return Token{Kind: Numeric, Num: f} }

// Str returns a String token.
func Str(s string) Token { return Token{Kind: String, Str: s} }

// Bool returns a Boolean token.
func Bool(b bool) Token { return Token{Kind: Boolean, Bool: b} }

// Err returns an Error token with the given code and optional detail.
func Err(code ErrorCode, detail string) Token {
	return Token{Kind: Error, Code: code, Str: detail}
}

// PendingToken is the placeholder for an outstanding asynchronous result.
var PendingToken = Token{Kind: Pending}

// Op returns an Operator token.
func Op(label string, argc int) Token {
	return Token{Kind: Operator, Str: label, Argc: argc}
}

// IsError reports whether t is an error token.
func (t Token) IsError() bool { return t.Kind == Error }

// IsPending reports whether t is a pending token.
func (t Token) IsPending() bool { return t.Kind == Pending }

// FromFloat converts a float64 result into a Numeric token, mapping NaN and
// infinities to error tokens.
func FromFloat(f float64) Token {
	switch {
	case math.IsNaN(f):
		return Err(NaN, "")
	case math.IsInf(f, 0):
		return Err(Infinity, "")
	}
	return Num(f)
}

// Equal reports whether two tokens carry the same value. Source positions are
// ignored.
func (t Token) Equal(u Token) bool {
	t.Pos, t.End, u.Pos, u.End = 0, 0, 0, 0
	return t == u
}

// String renders the token the way it is shown in a cell.
func (t Token) String() string {
	switch t.Kind {
	case Empty:
		return ""
	case Numeric:
		return FormatNum(t.Num)
	case String:
		return t.Str
	case Boolean:
		if t.Bool {
			return "true"
		}
		return "false"
	case Operator:
		return t.Str
	case LParen:
		return "("
	case RParen:
		return ")"
	case Comma:
		return ","
	case Pending:
		return "#PENDING"
	case Error:
		return "#" + strings.ToUpper(t.Code.String())
	}
	if t.Kind.IsRef() {
		return FormatRef(t.Kind, t.Ref)
	}
	return fmt.Sprintf("<token %d>", t.Kind)
}

// FormatNum formats a number in the shortest form that round-trips.
func FormatNum(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Quote quotes s as a double-quoted string literal.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// FormatRef renders a reference in the canonical reference grammar.
func FormatRef(k Kind, r Ref) string {
	var sb strings.Builder
	if r.Qualifier != "" {
		sb.WriteString(quoteName(r.Qualifier))
		sb.WriteString("::")
	}
	addr := func(kw string) {
		sb.WriteString(kw)
		if r.Label != "" {
			sb.WriteString(" " + Quote(r.Label))
		} else if r.Index > 0 {
			sb.WriteString(" " + strconv.Itoa(r.Index))
		}
	}
	switch k {
	case ColumnRef:
		addr("col")
	case RowRef:
		addr("row")
	case CellRef:
		fmt.Fprintf(&sb, "cell %d,%d", r.Index, r.Index2)
	case TableRef:
		addr("table")
	case SubsetRef:
		addr("set")
	}
	return sb.String()
}

func quoteName(s string) string {
	for i, r := range s {
		if !(r == '_' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' ||
			i > 0 && '0' <= r && r <= '9') {
			return Quote(s)
		}
	}
	return s
}
