package ops_test

import (
	"errors"
	"testing"

	. "src.tabl.sh/pkg/ops"
	"src.tabl.sh/pkg/token"
	"src.tabl.sh/pkg/tt"
)

func resolveErr(name string, args ...Type) string {
	_, _, err := reg.Resolve(name, args)
	if err == nil {
		return ""
	}
	return err.Error()
}

func TestResolve_Errors(t *testing.T) {
	tt.Test(t, tt.Fn(resolveErr).Named("Resolve"),
		tt.Args("+", Number, Number).Rets(""),
		tt.Args("+", Text, Logical).Rets(""),
		tt.Args("frobnicate").Rets("no such operator: frobnicate"),
		tt.Args("sqrt", Number, Number).Rets("sqrt takes 1 argument, but got 2"),
		tt.Args("mid", Text).Rets("mid takes 3 arguments, but got 1"),
		tt.Args("round").Rets("round takes 1 argument or 2 arguments, but got 0"),
		tt.Args("mean").Rets("mean takes 1 or more arguments, but got 0"),
		tt.Args("and", Text, Number).Rets(
			"wrong argument types for and: got (string, number), want and(boolean, boolean) -> boolean"),
		tt.Args("mean", Number).Rets(
			"argument 1 of mean must be a column, row, table or subset reference"),
		tt.Args("mean", Any|Reference, Any).Rets(
			"argument 2 of mean must be a column, row, table or subset reference"),
	)
}

func TestResolve_ErrorTypes(t *testing.T) {
	var noSuch *NoSuchOperatorError
	var arity *ArityError
	var typ *TypeError
	var target *TargetError
	_, _, err := reg.Resolve("frobnicate", nil)
	if !errors.As(err, &noSuch) {
		t.Errorf("got %T, want *NoSuchOperatorError", err)
	}
	_, _, err = reg.Resolve("sqrt", nil)
	if !errors.As(err, &arity) || arity.Actual != 0 {
		t.Errorf("got %#v, want *ArityError", err)
	}
	_, _, err = reg.Resolve("not", []Type{Text})
	if !errors.As(err, &typ) {
		t.Errorf("got %T, want *TypeError", err)
	}
	_, _, err = reg.Resolve("normalize", []Type{Any})
	if !errors.As(err, &target) || target.Index != 0 {
		t.Errorf("got %#v, want *TargetError", err)
	}
}

func resolvedSignature(name string, args ...Type) string {
	op, sig, err := reg.Resolve(name, args)
	if err != nil {
		return err.Error()
	}
	return FormatSignature(op.Label, sig)
}

func TestResolve_PicksOverload(t *testing.T) {
	tt.Test(t, tt.Fn(resolvedSignature).Named("Resolve"),
		// Exact matches win over widening.
		tt.Args("<", Text, Text).Rets("<(string, string) -> boolean"),
		tt.Args("<", Number, Text).Rets("<(any, any) -> boolean"),
		tt.Args("<", Logical, Logical).Rets("<(boolean, boolean) -> boolean"),
		// A column reference can stand for a whole element or for a value.
		tt.Args("min", Any|Reference).Rets("min(reference, reference...) -> number"),
		tt.Args("min", Any|Reference, Number).Rets("min(number, number...) -> number"),
		tt.Args("min", Number, Number).Rets("min(number, number...) -> number"),
		tt.Args("rank", Number, Reference).Rets("rank(number, reference) -> number"),
		tt.Args("delay", Number, Text).Rets("delay(number, any) -> any (async)"),
		tt.Args("pi").Rets("pi() -> number"),
	)
}

func TestFormatSignatures(t *testing.T) {
	op, _ := reg.Lookup("min")
	want := "min(reference, reference...) -> number or min(number, number...) -> number"
	if got := FormatSignatures(op); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestType_String(t *testing.T) {
	tt.Test(t, Type.String,
		tt.Args(Number).Rets("number"),
		tt.Args(Any).Rets("any"),
		tt.Args(Any|Reference).Rets("any|reference"),
		tt.Args(Number|Text).Rets("number|string"),
		tt.Args(Void).Rets("void"),
	)
}

func TestCoerce(t *testing.T) {
	ref := col(1)
	tt.Test(t, Coerce,
		tt.Args(Number, num(1)).Rets(num(1)),
		tt.Args(Number, str(" 2.5 ")).Rets(num(2.5)),
		tt.Args(Number, str("x")).Rets(errT(token.TypeMismatch, `not a number: "x"`)),
		tt.Args(Number, boo(true)).Rets(num(1)),
		tt.Args(Number, token.Token{}).Rets(num(0)),
		tt.Args(Logical, num(0)).Rets(boo(false)),
		tt.Args(Logical, str("true")).Rets(boo(true)),
		tt.Args(Logical, str("yes")).Rets(errT(token.TypeMismatch, `not a boolean: "yes"`)),
		tt.Args(Logical, token.Token{}).Rets(boo(false)),
		tt.Args(Text, num(1.5)).Rets(str("1.5")),
		tt.Args(Text, boo(false)).Rets(str("false")),
		tt.Args(Any, token.Token{}).Rets(token.Token{}),
		tt.Args(Any, num(3)).Rets(num(3)),
		tt.Args(Reference, ref).Rets(ref),
		tt.Args(Reference, num(3)).Rets(errT(token.ReferenceRequired, "")),
		tt.Args(Number, errT(token.NaN, "")).Rets(errT(token.NaN, "")),
		tt.Args(Number, token.PendingToken).Rets(token.PendingToken),
	)
}
