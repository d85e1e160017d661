package parse

import (
	"strings"

	"src.tabl.sh/pkg/ops"
	"src.tabl.sh/pkg/token"
)

// Format renders an infix stack as formula text. The text uses canonical
// operator labels and spacing; parsing it again yields an equivalent stack.
func Format(s token.Stack) string {
	var sb strings.Builder
	for _, t := range s {
		WriteToken(&sb, t)
	}
	return sb.String()
}

// WriteToken writes the text of a single infix token.
func WriteToken(sb *strings.Builder, t token.Token) {
	switch t.Kind {
	case token.Operator:
		switch {
		case t.Unary:
			sb.WriteString(t.Str)
			if !ops.IsSymbol(t.Str) {
				sb.WriteByte(' ')
			}
		case t.Func:
			sb.WriteString(t.Str)
		default:
			sb.WriteString(" " + t.Str + " ")
		}
	case token.Comma:
		sb.WriteString(", ")
	case token.String:
		sb.WriteString(token.Quote(t.Str))
	default:
		sb.WriteString(t.String())
	}
}
