package ops

import (
	"strconv"
	"strings"

	"src.tabl.sh/pkg/token"
)

// Coerce converts a value token to the declared parameter type p, following
// the same widening rules Resolve uses at conversion time:
//
//   - number: booleans become 1 or 0, numeric strings are parsed, empty
//     cells are 0;
//   - string: every value is rendered;
//   - boolean: numbers are true when non-zero, "true" and "false" are
//     parsed, empty cells are false.
//
// A value that cannot be converted yields a TypeMismatch error token. Error
// and pending tokens are returned unchanged.
func Coerce(p Type, t token.Token) token.Token {
	if t.Kind == token.Error || t.Kind == token.Pending {
		return t
	}
	if p == Reference {
		if t.Kind.IsRef() {
			return t
		}
		return token.Err(token.ReferenceRequired, "")
	}
	if p.Has(Any) {
		return t
	}
	have := TypeOf(t.Kind)
	if t.Kind != token.Empty && p&have != 0 {
		return t
	}
	switch {
	case p.Has(Number):
		switch t.Kind {
		case token.Empty:
			return token.Num(0)
		case token.Boolean:
			if t.Bool {
				return token.Num(1)
			}
			return token.Num(0)
		case token.String:
			f, err := strconv.ParseFloat(strings.TrimSpace(t.Str), 64)
			if err != nil {
				return token.Err(token.TypeMismatch, "not a number: "+token.Quote(t.Str))
			}
			return token.Num(f)
		}
	case p.Has(Logical):
		switch t.Kind {
		case token.Empty:
			return token.Bool(false)
		case token.Numeric:
			return token.Bool(t.Num != 0)
		case token.String:
			b, err := strconv.ParseBool(strings.TrimSpace(t.Str))
			if err != nil {
				return token.Err(token.TypeMismatch, "not a boolean: "+token.Quote(t.Str))
			}
			return token.Bool(b)
		}
	case p.Has(Text):
		return token.Str(t.String())
	}
	return token.Err(token.TypeMismatch, "")
}

// DynamicType returns the type used to resolve an overload for a run-time
// value.
func DynamicType(t token.Token) Type {
	return TypeOf(t.Kind)
}
