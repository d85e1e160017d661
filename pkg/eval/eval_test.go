package eval_test

import (
	"context"
	"math"
	"testing"
	"time"

	. "src.tabl.sh/pkg/eval"
	. "src.tabl.sh/pkg/eval/evaltest"
	"src.tabl.sh/pkg/parse"
	"src.tabl.sh/pkg/postfix"
	"src.tabl.sh/pkg/testutil"
	"src.tabl.sh/pkg/token"
)

var (
	num = token.Num
	str = token.Str
	boo = token.Bool
)

// A 4x4 grid:
//
//	  | 1 | 2  | 3    | 4
//	1 | 1 | 10 | "a"  | #DIV/0
//	2 | 2 | 20 |      |
//	3 | 3 | 30 | true |
//	4 | 4 | 40 | "5"  |
func grid() *Grid {
	g := NewGrid(4, 4)
	g.SetColumn(1, num(1), num(2), num(3), num(4))
	g.SetColumn(2, num(10), num(20), num(30), num(40))
	g.SetColumn(3, str("a"), token.Token{}, boo(true), str("5"))
	g.Set(1, 4, token.Err(token.DivideByZero, ""))
	return g
}

func TestEval_Precedence(t *testing.T) {
	Test(t, grid(),
		That("1 + 2").Evals(num(3)),
		That("4^3^2").Evals(num(262144)),
		That("3^2*(5+3*(8/2+3))-8/4").Evals(num(232)),
		That("-2^2").Evals(num(-4)),
		That("(-2)^2").Evals(num(4)),
		That("2 - 3 - 4").Evals(num(-5)),
		That("2 ** -1").Evals(num(0.5)),
		That("not false and false").Evals(boo(false)),
		That("1 + 2 & 3").Evals(str("33")),
	)
}

func TestEval_References(t *testing.T) {
	Test(t, grid(),
		That("col 1 + col 2").At(2, 1).Evals(num(22)),
		That("col 1").At(3, 2).Evals(num(3)),
		That("row 2").At(1, 2).Evals(num(20)),
		That("cell 4,2 - cell 1,1").Evals(num(39)),
		That("col 3").At(2, 1).Evals(token.Token{}),
		That("col 3 + 1").At(2, 1).Evals(num(1)),
		That("col 3 & col 1").At(1, 1).Evals(str("a1")),
		That("upper(col 3)").Evals(str("A")),
		That("col 3 * 2").At(4, 1).Evals(num(10)),
		That("col 3 * 2").At(1, 1).Fails(token.TypeMismatch),
		That("not col 3").At(1, 1).Fails(token.TypeMismatch),
		That("not col 3").At(3, 1).Evals(boo(false)),
		That("max(col 1, 7)").At(1, 1).Evals(num(7)),
		That("max(col 1, 7)").At(4, 1).Evals(num(7)),
		That("max(col 1, 2)").At(4, 1).Evals(num(4)),
		That("table").Fails(token.TypeMismatch),
		That("col 9").DoesNotCompile(parse.InvalidReference),
	)
}

func TestEval_Aggregates(t *testing.T) {
	Test(t, grid(),
		That("sum(col 1)").Evals(num(10)),
		That("sum(col 1, col 2)").Evals(num(110)),
		That("mean(row 2)").Evals(num(11)),
		That("max(col 2)").Evals(num(40)),
		That("count(col 3)").Evals(num(0)),
		That("mean(col 3)").Fails(token.NotAvailable),
		That("sum(col 4)").Fails(token.DivideByZero),
		That("count(table)").Fails(token.DivideByZero),
		That("normalize(col 1)").Evals(Approximately(-1.5 / math.Sqrt(1.25))),
		That("rank(col 2)").At(2, 1).Evals(num(3)),
		That("slope(col 2, col 1)").Evals(Approximately(10)),
		That("sum(1)").DoesNotCompile(parse.InvalidFunctionTarget),
	)
}

func TestEval_Errors(t *testing.T) {
	Test(t, grid(),
		That("1 / 0").Fails(token.DivideByZero),
		That("col 1 / (col 1 - 1)").At(1, 1).Fails(token.DivideByZero),
		That("col 1 / (col 1 - 1)").At(2, 1).Evals(num(2)),
		That("sqrt(-1)").Fails(token.NaN),
		That("col 4 + 1").At(1, 1).Fails(token.DivideByZero),
		That("col 4 + 1").At(2, 1).Evals(num(1)),
		That("-(col 4 * 2) & 'x'").At(1, 1).Fails(token.DivideByZero),
		That("iferror(col 4, 0)").At(1, 1).Evals(num(0)),
		That("iferror(col 4, 0)").At(2, 1).Evals(token.Token{}),
		That("iserror(col 4 / 2)").At(1, 1).Evals(boo(true)),
		That("if(col 1 > 2, 'big', 'small')").At(3, 1).Evals(str("big")),
		That("if(col 1 > 2, 'big', 1/0)").At(3, 1).Evals(str("big")),
		That("if(col 1 > 2, 'big', 1/0)").At(1, 1).Fails(token.DivideByZero),
	)
}

func TestEval_Time(t *testing.T) {
	Test(t, grid(),
		That("year(now())").Evals(num(2024)),
		That("now() - today()").Evals(num(3*3600 + 4*60 + 5)),
	)
}

func TestEval_Async(t *testing.T) {
	Test(t, grid(),
		That("delay(10, col 1 * 2) + 1").At(2, 1).Suspends().Evals(num(5)),
		That("delay(1, delay(1, 3)) * 2").Suspends().Evals(num(6)),
		That("iferror(delay(1, 1/0), 'fallback')").Evals(str("fallback")),
		That("delay(-1, 1)").Suspends().Fails(token.InvalidArgument),
		That("delay(10, col 4)").At(1, 1).Fails(token.DivideByZero),
	)
}

func compile(t *testing.T, g *Grid, code string) token.Stack {
	t.Helper()
	src := parse.SourceForTest(code)
	infix, err := parse.Parse(src, g)
	if err != nil {
		t.Fatal(err)
	}
	s, err := postfix.Convert(src, infix, nil, g.Reg)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestEval_PendingOperand(t *testing.T) {
	g := grid()
	g.Set(1, 1, token.PendingToken)
	ev := &Evaluator{Registry: g.Reg, Env: g}
	r := ev.Eval(compile(t, g, "col 1 * 2 + sum(col 2)"), SlotAt(1, 1))
	if !r.Value.IsPending() || r.Pending != nil {
		t.Errorf("got %v with continuation %v, want pending without continuation", r.Value, r.Pending)
	}
	r = ev.Eval(compile(t, g, "sum(col 1)"), SlotAt(2, 1))
	if !r.Value.IsPending() {
		t.Errorf("aggregate over a pending cell got %v, want pending", r.Value)
	}
	r = ev.Eval(compile(t, g, "col 4 + col 1"), SlotAt(1, 1))
	if r.Value.Code != token.DivideByZero {
		t.Errorf("error and pending operands got %v, want the error", r.Value)
	}
}

func TestPending_Cancel(t *testing.T) {
	g := grid()
	resolved := make(chan token.Token, 1)
	ev := &Evaluator{Registry: g.Reg, Env: g,
		Resolved: func(_ *Pending, t token.Token) { resolved <- t }}
	r := ev.Eval(compile(t, g, "delay(20, 1) + 1"), SlotAt(1, 1))
	if r.Pending == nil {
		t.Fatalf("got %v, want suspension", r.Value)
	}
	p := r.Pending
	if p.Label != "delay" || p.Slot != SlotAt(1, 1) {
		t.Errorf("pending is for %s at %v", p.Label, p.Slot)
	}
	p.Cancel()
	p.Cancel()
	if !p.Cancelled() {
		t.Errorf("Cancelled() = false after Cancel")
	}
	select {
	case v := <-resolved:
		t.Errorf("cancelled pending delivered %v", v)
	case <-time.After(testutil.Scaled(100 * time.Millisecond)):
	}
	if v := ev.Resume(p, num(1)).Value; v.Code != token.Cancelled {
		t.Errorf("Resume after Cancel got %v, want a Cancelled error", v)
	}
}

func TestPending_ParentContext(t *testing.T) {
	g := grid()
	ctx, cancel := context.WithCancel(context.Background())
	ev := &Evaluator{Registry: g.Reg, Env: g, Context: ctx}
	r := ev.Eval(compile(t, g, "delay(1000, 1)"), SlotAt(1, 1))
	if r.Pending == nil {
		t.Fatalf("got %v, want suspension", r.Value)
	}
	cancel()
	if !r.Pending.Cancelled() {
		t.Errorf("Cancelled() = false after cancelling the parent context")
	}
	if r.Pending.Context().Err() == nil {
		t.Errorf("operator context not cancelled")
	}
}

func TestResume_Idempotent(t *testing.T) {
	g := grid()
	ch := make(chan *Pending, 1)
	ev := &Evaluator{Registry: g.Reg, Env: g,
		Resolved: func(p *Pending, _ token.Token) { ch <- p }}
	r := ev.Eval(compile(t, g, "delay(1, 0) + col 2"), SlotAt(3, 1))
	p := <-ch
	if p != r.Pending {
		t.Fatalf("Resolved called with a different Pending")
	}
	for i := 0; i < 2; i++ {
		if v := ev.Resume(p, num(5)).Value; !v.Equal(num(35)) {
			t.Errorf("Resume #%d got %v, want 35", i, v)
		}
	}
}
