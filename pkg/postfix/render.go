package postfix

import (
	"strings"

	"src.tabl.sh/pkg/ops"
	"src.tabl.sh/pkg/parse"
	"src.tabl.sh/pkg/token"
)

// Precedence of operands and function calls, which never need parentheses.
const atom = 1 << 10

type rendered struct {
	text string
	prec int
}

// Render renders a postfix stack as infix formula text, inserting only the
// parentheses that precedence and associativity require. Parsing and
// converting the result yields a stack equal to s.
//
// Operators unknown to reg are rendered with function-call syntax.
func Render(s token.Stack, reg *ops.Registry) string {
	var stack []rendered
	pop := func(n int) []rendered {
		if n > len(stack) {
			// Malformed input; render what there is.
			n = len(stack)
		}
		args := stack[len(stack)-n:]
		stack = stack[:len(stack)-n]
		return append([]rendered(nil), args...)
	}
	for _, t := range s {
		if t.Kind != token.Operator {
			var sb strings.Builder
			parse.WriteToken(&sb, t)
			stack = append(stack, rendered{sb.String(), atom})
			continue
		}
		args := pop(t.Argc)
		var op *ops.Operator
		var ok bool
		if t.Unary {
			op, ok = reg.LookupPrefix(t.Str)
		} else {
			op, ok = reg.Lookup(t.Str)
		}
		switch {
		case ok && t.Unary && len(args) == 1:
			var sb strings.Builder
			parse.WriteToken(&sb, t)
			sb.WriteString(wrap(args[0], args[0].prec < op.Precedence))
			stack = append(stack, rendered{sb.String(), op.Precedence})
		case ok && op.Infix && len(args) == 2:
			p := op.Precedence
			l, r := args[0], args[1]
			lp := l.prec < p || l.prec == p && op.Assoc == ops.Right
			rp := r.prec < p || r.prec == p && op.Assoc == ops.Left
			stack = append(stack, rendered{wrap(l, lp) + " " + t.Str + " " + wrap(r, rp), p})
		default:
			texts := make([]string, len(args))
			for i, a := range args {
				texts[i] = a.text
			}
			stack = append(stack, rendered{t.Str + "(" + strings.Join(texts, ", ") + ")", atom})
		}
	}
	texts := make([]string, len(stack))
	for i, r := range stack {
		texts[i] = r.text
	}
	return strings.Join(texts, " ")
}

func wrap(r rendered, paren bool) string {
	if paren {
		return "(" + r.text + ")"
	}
	return r.text
}
