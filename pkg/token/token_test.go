package token

import (
	"math"
	"testing"

	. "src.tabl.sh/pkg/tt"
)

func TestFromFloat(t *testing.T) {
	Test(t, FromFloat,
		Args(1.5).Rets(Num(1.5)),
		Args(math.NaN()).Rets(Err(NaN, "")),
		Args(math.Inf(-1)).Rets(Err(Infinity, "")),
	)
}

func TestTokenString(t *testing.T) {
	str := func(t Token) string { return t.String() }
	Test(t, Fn(str).Named("String"),
		Args(Num(232)).Rets("232"),
		Args(Num(0.1)).Rets("0.1"),
		Args(Str("x")).Rets("x"),
		Args(Bool(true)).Rets("true"),
		Args(Err(DivideByZero, "")).Rets("#DIVIDEBYZERO"),
		Args(PendingToken).Rets("#PENDING"),
		Args(Token{Kind: ColumnRef, Ref: Ref{Index: 3}}).Rets("col 3"),
		Args(Token{Kind: RowRef, Ref: Ref{Label: "Total"}}).Rets(`row "Total"`),
		Args(Token{Kind: CellRef, Ref: Ref{Index: 2, Index2: 5}}).Rets("cell 2,5"),
		Args(Token{Kind: ColumnRef, Ref: Ref{Qualifier: "Sales", Index: 1}}).Rets("Sales::col 1"),
		Args(Token{Kind: SubsetRef, Ref: Ref{Qualifier: "Q 1", Label: "odd"}}).Rets(`"Q 1"::set "odd"`),
		Args(Token{Kind: TableRef}).Rets("table"),
	)
}

func TestQuote(t *testing.T) {
	Test(t, Quote,
		Args(`a"b`).Rets(`"a\"b"`),
		Args("tab\there").Rets(`"tab\there"`),
	)
}

func TestStack(t *testing.T) {
	var s Stack
	s.Push(Num(1))
	s.Push(Num(2))
	s.Push(Op("+", 2))
	if got := s.String(); got != "1 2 +/2" {
		t.Errorf("String() -> %q", got)
	}
	args := s.PopN(2)
	if len(args) != 2 || !args[0].Equal(Num(2)) || len(s) != 1 {
		t.Errorf("PopN(2) -> %v, remaining %v", args, s)
	}
	if top, ok := s.Peek(); !ok || !top.Equal(Num(1)) {
		t.Errorf("Peek() -> %v, %v", top, ok)
	}
	c := s.Clone()
	c[0] = Num(9)
	if s[0].Num != 1 {
		t.Errorf("Clone shares storage")
	}
	withPos := Num(1)
	withPos.Pos, withPos.End = 4, 5
	if !s.Equal(Stack{withPos}) {
		t.Errorf("Equal does not ignore positions")
	}
}
