// Package evaltest provides a framework for testing formulas.
//
// The entry point for the framework is the Test function, which accepts a
// *testing.T, a fixture Grid and any number of test cases.
//
// Test cases are constructed using the That function, followed by method calls
// that add additional information to it.
//
// Example:
//
//	Test(t, grid,
//	    That("1 + 2").Evals(token.Num(3)),
//	    That("1 / 0").Fails(token.DivideByZero),
//	    That("sum(1)").DoesNotCompile(parse.InvalidFunctionTarget))
package evaltest

import (
	"fmt"
	"math"
	"testing"
	"time"

	"src.tabl.sh/pkg/eval"
	"src.tabl.sh/pkg/parse"
	"src.tabl.sh/pkg/postfix"
	"src.tabl.sh/pkg/testutil"
	"src.tabl.sh/pkg/token"
	"src.tabl.sh/pkg/tt"
)

// Case is a test case that can be used in Test.
type Case struct {
	code string
	row  int
	col  int
	want result
}

type result struct {
	value   any
	status  parse.StatusCode
	pending bool
}

// That returns a new Case with the given formula, evaluated for cell (1, 1).
func That(code string) Case {
	return Case{code: code, row: 1, col: 1}
}

// At returns an altered Case that is evaluated for cell (r, c).
func (c Case) At(r, col int) Case {
	c.row, c.col = r, col
	return c
}

// Evals returns an altered Case that requires the formula to evaluate to the
// given value. The value is either a token.Token, compared with
// token.Token.Equal, or a tt.Matcher called with the result token.
//
// If the formula suspends on an asynchronous operator, the value is compared
// with the result after the operator delivers.
func (c Case) Evals(v any) Case {
	c.want.value = v
	return c
}

// Fails returns an altered Case that requires the formula to evaluate to an
// error with the given code.
func (c Case) Fails(code token.ErrorCode) Case {
	c.want.value = errorWithCode(code)
	return c
}

// Suspends returns an altered Case that requires the formula to suspend on an
// asynchronous operator before producing its value.
func (c Case) Suspends() Case {
	c.want.pending = true
	return c
}

// DoesNotCompile returns an altered Case that requires the formula to be
// rejected by the parser or the postfix generator with the given code.
func (c Case) DoesNotCompile(code parse.StatusCode) Case {
	c.want.status = code
	return c
}

// Approximately returns a matcher for a numeric token within 1e-9 of f.
func Approximately(f float64) tt.Matcher { return approx(f) }

type approx float64

func (a approx) Match(v tt.RetValue) bool {
	t, ok := v.(token.Token)
	return ok && t.Kind == token.Numeric && math.Abs(t.Num-float64(a)) <= 1e-9
}

type errorWithCode token.ErrorCode

func (e errorWithCode) Match(v tt.RetValue) bool {
	t, ok := v.(token.Token)
	return ok && t.IsError() && t.Code == token.ErrorCode(e)
}

// Test runs test cases against a fixture grid.
func Test(t *testing.T, g *Grid, tests ...Case) {
	t.Helper()
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			t.Helper()
			src := parse.Source{Name: "[test]", Code: tc.code}
			s, err := compile(src, g)
			if status := parse.StatusOf(err); status != tc.want.status {
				t.Fatalf("got status %v (%v), want %v", status, err, tc.want.status)
			}
			if err != nil {
				return
			}
			v, suspended := Run(t, g, s, SlotAt(tc.row, tc.col))
			if suspended != tc.want.pending {
				t.Errorf("suspended = %v, want %v", suspended, tc.want.pending)
			}
			if !match(tc.want.value, v) {
				t.Errorf("got %#v, want %v", v, tc.want.value)
			}
		})
	}
}

func compile(src parse.Source, g *Grid) (token.Stack, error) {
	infix, err := parse.Parse(src, g)
	if err != nil {
		return nil, err
	}
	return postfix.Convert(src, infix, nil, g.Reg)
}

// Run evaluates s for slot, resuming through asynchronous operators until a
// final value is available. It reports whether evaluation was suspended at
// least once.
func Run(t *testing.T, g *Grid, s token.Stack, slot eval.Slot) (token.Token, bool) {
	t.Helper()
	type delivery struct {
		p *eval.Pending
		t token.Token
	}
	ch := make(chan delivery, 1)
	ev := &eval.Evaluator{
		Registry: g.Reg, Env: g,
		Resolved: func(p *eval.Pending, t token.Token) { ch <- delivery{p, t} },
	}
	r := ev.Eval(s, slot)
	suspended := false
	for r.Pending != nil {
		suspended = true
		select {
		case d := <-ch:
			r = ev.Resume(d.p, d.t)
		case <-time.After(testutil.Scaled(2 * time.Second)):
			t.Fatalf("timed out waiting for %s", r.Pending.Label)
		}
	}
	return r.Value, suspended
}

func match(want any, got token.Token) bool {
	switch want := want.(type) {
	case nil:
		return true
	case tt.Matcher:
		return want.Match(got)
	case token.Token:
		return want.Equal(got)
	}
	panic(fmt.Sprintf("unsupported want value %T", want))
}
