package ops_test

import (
	"math"
	"time"

	"src.tabl.sh/pkg/ops"
	"src.tabl.sh/pkg/token"
	"src.tabl.sh/pkg/tt"
)

var (
	num  = token.Num
	str  = token.Str
	boo  = token.Bool
	errT = token.Err
)

// testEnv holds the values of a few columns, and the value each column has
// in the acting row.
type testEnv struct {
	columns map[token.ElementID][]token.Token
	current map[token.ElementID]token.Token
	now     time.Time
}

func (e *testEnv) Deref(ref token.Token) token.Token { return e.current[ref.Ref.Elem] }

func (e *testEnv) Values(ref token.Token) []token.Token { return e.columns[ref.Ref.Elem] }

func (e *testEnv) Now() time.Time { return e.now }

var env = &testEnv{
	columns: map[token.ElementID][]token.Token{
		1: {num(1), num(2), str("x"), {}, num(3)},
		2: {num(2), num(4), num(6)},
		3: {num(1), num(2), num(3)},
		4: {num(1), errT(token.DivideByZero, "")},
	},
	current: map[token.ElementID]token.Token{
		1: num(2),
		3: num(3),
	},
	now: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
}

func col(id token.ElementID) token.Token {
	return token.Token{Kind: token.ColumnRef, Ref: token.Ref{Index: int(id), Elem: id}}
}

func cell(id token.ElementID) token.Token {
	return token.Token{Kind: token.CellRef, Ref: token.Ref{Index: 1, Index2: int(id), Elem: id}}
}

var reg = ops.NewRegistry()

// call resolves label against the dynamic types of args, coerces the
// arguments the way the evaluator does and calls the implementation.
func call(label string, args ...token.Token) token.Token {
	types := make([]ops.Type, len(args))
	for i, a := range args {
		types[i] = ops.DynamicType(a)
	}
	op, sig, err := reg.Resolve(label, types)
	if err != nil {
		panic(err)
	}
	coerced := make([]token.Token, len(args))
	for i, a := range args {
		p := sig.Param(i)
		if p != ops.Reference && a.Kind.IsRef() {
			a = env.Deref(a)
		}
		coerced[i] = ops.Coerce(p, a)
		if !op.ErrorAware && (coerced[i].IsError() || coerced[i].IsPending()) {
			return coerced[i]
		}
	}
	return sig.Impl(&ops.Call{Env: env, Label: op.Label}, coerced)
}

// approx matches a Numeric token close to a value.
type approx float64

func (a approx) Match(v tt.RetValue) bool {
	t, ok := v.(token.Token)
	return ok && t.Kind == token.Numeric && math.Abs(t.Num-float64(a)) < 1e-9
}
