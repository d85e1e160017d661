package ops

import (
	"time"

	"src.tabl.sh/pkg/token"
)

// Precedences of the built-in infix and prefix operators. Higher binds
// tighter.
const (
	precOr      = 1
	precAnd     = 2
	precCompare = 3
	precConcat  = 4
	precAdd     = 5
	precMul     = 6
	precPrefix  = 7
	precPow     = 8
)

func builtins() []*Operator {
	var all []*Operator
	for _, group := range [][]*Operator{
		arithOps(), compareOps(), logicOps(), condOps(),
		strOps(), numOps(), statOps(), probOps(), timeOps(), asyncOps(),
	} {
		all = append(all, group...)
	}
	return all
}

func sig(result Type, impl Impl, params ...Type) Signature {
	return Signature{Params: params, Result: result, Impl: impl}
}

// variadicSig returns a signature whose last parameter repeats.
func variadicSig(result Type, impl Impl, params ...Type) Signature {
	return Signature{Params: params, Variadic: true, Result: result, Impl: impl}
}

func infix(label string, prec int, assoc Assoc, sigs ...Signature) *Operator {
	return &Operator{Label: label, Infix: true, Precedence: prec, Assoc: assoc, Signatures: sigs}
}

func fn(label string, sigs ...Signature) *Operator {
	return &Operator{Label: label, Signatures: sigs}
}

func alias(op *Operator, names ...string) *Operator {
	op.Aliases = append(op.Aliases, names...)
	return op
}

func num1(f func(float64) float64) Impl {
	return func(_ *Call, args []token.Token) token.Token {
		return token.FromFloat(f(args[0].Num))
	}
}

func num2(f func(a, b float64) float64) Impl {
	return func(_ *Call, args []token.Token) token.Token {
		return token.FromFloat(f(args[0].Num, args[1].Num))
	}
}

func constant(f float64) Impl {
	return func(*Call, []token.Token) token.Token { return token.Num(f) }
}

func invalid(detail string) token.Token {
	return token.Err(token.InvalidArgument, detail)
}

// now returns the current time of the call's environment.
func (c *Call) now() time.Time {
	if c == nil || c.Env == nil {
		return time.Now()
	}
	return c.Env.Now()
}
