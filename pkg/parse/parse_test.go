package parse_test

import (
	"testing"

	"src.tabl.sh/pkg/ops"
	. "src.tabl.sh/pkg/parse"
	"src.tabl.sh/pkg/token"
	. "src.tabl.sh/pkg/tt"
)

// testResolver knows columns and rows 1 to 8, a column and a row labelled
// "Total", the cells between them, the acting table, a table named "Sales"
// and a subset named "odd". Qualified references are accepted for the tables
// "Sales" and "Q 1".
type testResolver struct{ reg *ops.Registry }

func (r testResolver) Registry() *ops.Registry { return r.reg }

func (r testResolver) ResolveRef(kind token.Kind, ref token.Ref) (token.ElementID, bool) {
	switch ref.Qualifier {
	case "", "Sales", "Q 1":
	default:
		return 0, false
	}
	inRange := func(i int) bool { return 1 <= i && i <= 8 }
	switch kind {
	case token.ColumnRef, token.RowRef:
		base := token.ElementID(100)
		if kind == token.RowRef {
			base = 200
		}
		if ref.Label == "Total" {
			return base + 99, true
		}
		if ref.Label == "" && inRange(ref.Index) {
			return base + token.ElementID(ref.Index), true
		}
	case token.CellRef:
		if inRange(ref.Index) && inRange(ref.Index2) {
			return token.ElementID(1000*ref.Index + ref.Index2), true
		}
	case token.TableRef:
		switch {
		case ref.Label == "" && ref.Index == 0:
			return 1, true
		case ref.Label == "Sales" || ref.Index == 2:
			return 2, true
		}
	case token.SubsetRef:
		if ref.Label == "odd" {
			return 3, true
		}
	}
	return 0, false
}

var resolver = testResolver{ops.NewRegistry()}

func parse(code string) (token.Stack, error) {
	return Parse(SourceForTest(code), resolver)
}

func format(code string) string {
	s, err := parse(code)
	if err != nil {
		return "error: " + err.Error()
	}
	return Format(s)
}

func TestParse_Format(t *testing.T) {
	Test(t, format,
		Args("1+2").Rets("1 + 2"),
		Args("  1   +\t2 ").Rets("1 + 2"),
		Args("2**3").Rets("2 ^ 3"),
		Args("-2^2").Rets("-2 ^ 2"),
		Args("--2").Rets("--2"),
		Args("+2").Rets("+2"),
		Args("2^-1").Rets("2 ^ -1"),
		Args("not true && false").Rets("not true and false"),
		Args("!true").Rets("!true"),
		Args("NOT true").Rets("not true"),
		Args("true AND false").Rets("true and false"),
		Args("1 <> 2").Rets("1 != 2"),
		Args("1<=2").Rets("1 <= 2"),
		Args("SUM(col 1,col 2)").Rets("sum(col 1, col 2)"),
		Args("sum ( column 1 )").Rets("sum(col 1)"),
		Args("pi*2").Rets("pi * 2"),
		Args("pi()").Rets("pi()"),
		Args("(1+2)*3").Rets("(1 + 2) * 3"),
		Args(`'a"b'`).Rets(`"a\"b"`),
		Args(`"tab\there" & 'x'`).Rets(`"tab\there" & "x"`),
		Args(`"it\'s"`).Rets(`"it's"`),
		Args("cell 1,2 + 1").Rets("cell 1,2 + 1"),
		Args("cell 1 , 2").Rets("cell 1,2"),
		Args(`col "Total" * row 3`).Rets(`col "Total" * row 3`),
		Args(`Sales::col "Total"`).Rets(`Sales::col "Total"`),
		Args(`"Q 1" :: row 2`).Rets(`"Q 1"::row 2`),
		Args("count(table)").Rets("count(table)"),
		Args(`count(table "Sales")`).Rets(`count(table "Sales")`),
		Args("count(table 2)").Rets("count(table 2)"),
		Args("sum(set odd)").Rets(`sum(set "odd")`),
		Args(`mean(subset "odd")`).Rets(`mean(set "odd")`),
		Args("1.5e3").Rets("1500"),
		Args("2.5E-4").Rets("0.00025"),
		Args(".5").Rets("0.5"),
		Args("1e21").Rets("1e+21"),
		Args("if(col 1 > 0, 'pos', 'neg')").Rets(`if(col 1 > 0, "pos", "neg")`),
	)
}

func TestParse_Tokens(t *testing.T) {
	s, err := parse("sum(col 1, 2) + -x1")
	if err == nil {
		t.Fatalf("parsing unknown word succeeded: %v", s)
	}

	s, err = parse("sum(col 1, 2) - -pi")
	if err != nil {
		t.Fatal(err)
	}
	want := token.Stack{
		{Kind: token.Operator, Str: "sum", Func: true, Argc: 2},
		{Kind: token.LParen},
		{Kind: token.ColumnRef, Ref: token.Ref{Index: 1, Elem: 101}},
		{Kind: token.Comma},
		token.Num(2),
		{Kind: token.RParen},
		{Kind: token.Operator, Str: "-", Argc: 2},
		{Kind: token.Operator, Str: "-", Argc: 1, Unary: true},
		{Kind: token.Operator, Str: "pi", Func: true},
	}
	if !s.Equal(want) {
		t.Errorf("got %v\nwant %v", s, want)
	}
}

func TestParse_Positions(t *testing.T) {
	s, err := parse("1 + col 23")
	if err == nil {
		t.Fatalf("col 23 resolved")
	}
	s, err = parse("12 + col 3")
	if err != nil {
		t.Fatal(err)
	}
	type span struct{ Pos, End int }
	var got []span
	for _, tok := range s {
		got = append(got, span{tok.Pos, tok.End})
	}
	want := []span{{0, 2}, {3, 4}, {5, 10}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d spans %v, want %v", i, got[i], want[i])
		}
	}
}

func status(code string) (StatusCode, int, int) {
	_, err := parse(code)
	if err == nil {
		return Success, 0, 0
	}
	perr := err.(*Error)
	r := perr.Range()
	return perr.Code, r.From, r.To
}

func TestParse_Errors(t *testing.T) {
	Test(t, Fn(status).Named("parse"),
		Args("1+2").Rets(Success, 0, 0),
		Args("").Rets(EmptyExpression, 0, 0),
		Args("   ").Rets(EmptyExpression, 0, 3),
		Args("1 2").Rets(InvalidOperandLocation, 2, 3),
		Args("pi pi").Rets(InvalidOperandLocation, 3, 5),
		Args(`1 "a"`).Rets(InvalidOperandLocation, 2, 5),
		Args("1 (2)").Rets(InvalidOperandLocation, 2, 3),
		Args("1, 2").Rets(InvalidOperandLocation, 1, 2),
		Args("1 !").Rets(InvalidOperandLocation, 2, 3),
		Args("1.2.3").Rets(InvalidNumericExpression, 0, 5),
		Args("1e").Rets(InvalidNumericExpression, 0, 2),
		Args("1e+").Rets(InvalidNumericExpression, 0, 3),
		Args("12abc+1").Rets(InvalidNumericExpression, 0, 5),
		Args("1e999").Rets(InvalidNumericExpression, 0, 5),
		Args("foo(1)").Rets(NoSuchOperator, 0, 3),
		Args("1 # 2").Rets(NoSuchOperator, 2, 3),
		Args(`"abc`).Rets(SingletonQuote, 0, 4),
		Args(`'abc"`).Rets(SingletonQuote, 0, 5),
		Args("(1+2").Rets(UnbalancedParentheses, 0, 1),
		Args("sum(col 1").Rets(UnbalancedParentheses, 3, 4),
		Args("1+2)").Rets(UnbalancedParentheses, 3, 4),
		Args("1+").Rets(MissingOperand, 2, 2),
		Args("*2").Rets(MissingOperand, 0, 1),
		Args("and true").Rets(MissingOperand, 0, 3),
		Args("sum(col 1,)").Rets(MissingOperand, 10, 11),
		Args("sum(,col 1)").Rets(MissingOperand, 4, 5),
		Args("()").Rets(MissingOperand, 1, 2),
		Args("col 99").Rets(InvalidReference, 0, 6),
		Args("col").Rets(InvalidReference, 0, 3),
		Args("col 1.5").Rets(InvalidReference, 0, 3),
		Args("cell 1").Rets(InvalidReference, 0, 6),
		Args("cell 9,1").Rets(InvalidReference, 0, 8),
		Args("set").Rets(InvalidReference, 0, 3),
		Args("Sales::table").Rets(InvalidReference, 0, 12),
		Args("Other::col 1").Rets(InvalidReference, 0, 12),
	)
}

func TestError_Message(t *testing.T) {
	_, err := parse("1 2")
	want := "formula error: [test]:3: unexpected operand 2, missing an operator before it"
	if err == nil || err.Error() != want {
		t.Errorf("got %v, want %q", err, want)
	}
	if StatusOf(err) != InvalidOperandLocation {
		t.Errorf("StatusOf -> %v", StatusOf(err))
	}
	if StatusOf(nil) != Success {
		t.Errorf("StatusOf(nil) -> %v", StatusOf(nil))
	}
}

func TestStatusCode_String(t *testing.T) {
	Test(t, StatusCode.String,
		Args(CircularReference).Rets("CircularReference"),
		Args(StatusCode(200)).Rets("StatusCode(200)"),
	)
}

func TestFormat_RoundTrip(t *testing.T) {
	for _, code := range []string{
		"3^2*(5+3*(8/2+3))-8/4",
		"-(1+2)*not(false)",
		`concat("a", 'b', upper("c")) & left("xyz", 2)`,
		"if(cell 1,2 >= 3, mean(col 1, row 2), stdev(table))",
		`Sales::col "Total" / "Q 1"::row 2`,
		"e^2 + pi() + rand",
	} {
		s1, err := parse(code)
		if err != nil {
			t.Errorf("parse %q: %v", code, err)
			continue
		}
		text := Format(s1)
		s2, err := parse(text)
		if err != nil {
			t.Errorf("parse formatted %q: %v", text, err)
			continue
		}
		if !s1.Equal(s2) {
			t.Errorf("%q formatted as %q, which parses to %v, want %v", code, text, s2, s1)
		}
		if again := Format(s2); again != text {
			t.Errorf("Format is not stable: %q then %q", text, again)
		}
	}
}
