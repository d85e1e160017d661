package ops

import (
	"math"
	"strings"

	"src.tabl.sh/pkg/token"
)

// Arithmetic, comparison, logical and conditional operators.

func arithOps() []*Operator {
	return []*Operator{
		infix("+", precAdd, Left, sig(Number, num2(func(a, b float64) float64 { return a + b }), Number, Number)),
		infix("-", precAdd, Left, sig(Number, num2(func(a, b float64) float64 { return a - b }), Number, Number)),
		infix("*", precMul, Left, sig(Number, num2(func(a, b float64) float64 { return a * b }), Number, Number)),
		infix("/", precMul, Left, sig(Number, divide, Number, Number)),
		infix("%", precMul, Left, sig(Number, modulo, Number, Number)),
		alias(infix("^", precPow, Right, sig(Number, num2(math.Pow), Number, Number)), "**"),
		{Label: "neg", Aliases: []string{"-"}, Prefix: true, Precedence: precPrefix,
			Signatures: []Signature{sig(Number, num1(func(a float64) float64 { return -a }), Number)}},
		{Label: "pos", Aliases: []string{"+"}, Prefix: true, Precedence: precPrefix,
			Signatures: []Signature{sig(Number, num1(func(a float64) float64 { return a }), Number)}},
	}
}

func divide(_ *Call, args []token.Token) token.Token {
	if args[1].Num == 0 {
		return token.Err(token.DivideByZero, "")
	}
	return token.FromFloat(args[0].Num / args[1].Num)
}

func modulo(_ *Call, args []token.Token) token.Token {
	if args[1].Num == 0 {
		return token.Err(token.DivideByZero, "")
	}
	return token.FromFloat(math.Mod(args[0].Num, args[1].Num))
}

func compareOps() []*Operator {
	return []*Operator{
		alias(compareOp("=", func(c int) bool { return c == 0 }), "=="),
		alias(compareOp("!=", func(c int) bool { return c != 0 }), "<>"),
		compareOp("<", func(c int) bool { return c < 0 }),
		compareOp("<=", func(c int) bool { return c <= 0 }),
		compareOp(">", func(c int) bool { return c > 0 }),
		compareOp(">=", func(c int) bool { return c >= 0 }),
	}
}

func compareOp(label string, test func(int) bool) *Operator {
	impl := func(_ *Call, args []token.Token) token.Token {
		return token.Bool(test(Compare(args[0], args[1])))
	}
	return infix(label, precCompare, Left,
		sig(Logical, impl, Number, Number),
		sig(Logical, impl, Text, Text),
		sig(Logical, impl, Logical, Logical),
		sig(Logical, impl, Any, Any))
}

// Compare orders two value tokens. Values of different kinds are ordered
// empty < number < string < boolean; strings compare case-sensitively.
func Compare(a, b token.Token) int {
	if a.Kind != b.Kind {
		return kindRank(a.Kind) - kindRank(b.Kind)
	}
	switch a.Kind {
	case token.Numeric:
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
	case token.String:
		return strings.Compare(a.Str, b.Str)
	case token.Boolean:
		switch {
		case !a.Bool && b.Bool:
			return -1
		case a.Bool && !b.Bool:
			return 1
		}
	}
	return 0
}

func kindRank(k token.Kind) int {
	switch k {
	case token.Empty:
		return 0
	case token.Numeric:
		return 1
	case token.String:
		return 2
	case token.Boolean:
		return 3
	}
	return 4
}

func logicOps() []*Operator {
	bool2 := func(f func(a, b bool) bool) Impl {
		return func(_ *Call, args []token.Token) token.Token {
			return token.Bool(f(args[0].Bool, args[1].Bool))
		}
	}
	return []*Operator{
		alias(infix("and", precAnd, Left, sig(Logical, bool2(func(a, b bool) bool { return a && b }), Logical, Logical)), "&&"),
		alias(infix("or", precOr, Left, sig(Logical, bool2(func(a, b bool) bool { return a || b }), Logical, Logical)), "||"),
		infix("xor", precOr, Left, sig(Logical, bool2(func(a, b bool) bool { return a != b }), Logical, Logical)),
		{Label: "not", Aliases: []string{"!"}, Prefix: true, Precedence: precPrefix,
			Signatures: []Signature{sig(Logical, func(_ *Call, args []token.Token) token.Token {
				return token.Bool(!args[0].Bool)
			}, Logical)}},
	}
}

func condOps() []*Operator {
	is := func(f func(token.Token) bool) Impl {
		return func(_ *Call, args []token.Token) token.Token {
			if args[0].IsPending() {
				return args[0]
			}
			return token.Bool(f(args[0]))
		}
	}
	return []*Operator{
		{Label: "if", ErrorAware: true, Signatures: []Signature{
			sig(Any, ifImpl, Logical, Any, Any),
			sig(Any, ifImpl, Logical, Any),
		}},
		{Label: "iferror", ErrorAware: true, Signatures: []Signature{
			sig(Any, func(_ *Call, args []token.Token) token.Token {
				if args[0].IsError() {
					return args[1]
				}
				return args[0]
			}, Any, Any),
		}},
		{Label: "iserror", ErrorAware: true, Signatures: []Signature{
			sig(Logical, is(token.Token.IsError), Any),
		}},
		fn("isnumber", sig(Logical, is(func(t token.Token) bool { return t.Kind == token.Numeric }), Any)),
		fn("istext", sig(Logical, is(func(t token.Token) bool { return t.Kind == token.String }), Any)),
		fn("isblank", sig(Logical, is(func(t token.Token) bool { return t.Kind == token.Empty }), Any)),
	}
}

// ifImpl receives unfiltered operands, so only the chosen branch can poison
// the result.
func ifImpl(_ *Call, args []token.Token) token.Token {
	cond := args[0]
	if cond.IsError() || cond.IsPending() {
		return cond
	}
	if cond.Bool {
		return args[1]
	}
	if len(args) > 2 {
		return args[2]
	}
	return token.Bool(false)
}
