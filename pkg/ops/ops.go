// Package ops implements operators and the operator registry.
//
// An Operator is an immutable descriptor: a label, optional aliases, syntax
// information for infix and prefix operators, and one or more signatures.
// Each signature carries its own implementation, which is how overloading
// works: the registry picks the signature that matches the kinds of the
// actual arguments.
package ops

import (
	"context"
	"strings"
	"time"

	"src.tabl.sh/pkg/token"
)

// Type is a set of argument kinds, used both as the declared type of a
// parameter and as the static type of an argument expression.
type Type uint8

// Basic types. Combine them with | to form unions.
const (
	Number Type = 1 << iota
	Text
	Logical
	Reference

	// Any is any scalar value.
	Any = Number | Text | Logical
	// Void is the empty type; no value has it.
	Void Type = 0
)

var typeNames = []struct {
	t    Type
	name string
}{
	{Any, "any"},
	{Number, "number"},
	{Text, "string"},
	{Logical, "boolean"},
	{Reference, "reference"},
}

func (t Type) String() string {
	if t == Void {
		return "void"
	}
	var names []string
	rest := t
	for _, tn := range typeNames {
		if rest&tn.t == tn.t {
			names = append(names, tn.name)
			rest &^= tn.t
		}
	}
	return strings.Join(names, "|")
}

// Has reports whether t includes every kind in u.
func (t Type) Has(u Type) bool { return t&u == u }

// TypeOf returns the static type of a value or reference token. Column and
// row references can stand for a scalar (the value in the acting row or
// column) as well as for the whole element.
func TypeOf(k token.Kind) Type {
	switch k {
	case token.Numeric:
		return Number
	case token.String:
		return Text
	case token.Boolean:
		return Logical
	case token.Empty, token.CellRef, token.Pending, token.Error:
		return Any
	case token.ColumnRef, token.RowRef:
		return Any | Reference
	case token.TableRef, token.SubsetRef:
		return Reference
	}
	return Void
}

// Assoc is the associativity of an infix operator.
type Assoc uint8

// Associativities.
const (
	Left Assoc = iota
	Right
)

// Impl is the implementation of a synchronous signature. It must not block
// and must report value errors as error tokens.
type Impl func(c *Call, args []token.Token) token.Token

// AsyncImpl is the implementation of an asynchronous signature. It must
// return promptly and call resolve exactly once, from any goroutine, unless
// c.Context is cancelled first.
type AsyncImpl func(c *Call, args []token.Token, resolve func(token.Token))

// Signature is one overload of an operator.
type Signature struct {
	Params []Type
	// Variadic means the last parameter may repeat zero or more times.
	Variadic bool
	Result   Type
	Impl     Impl
	Async    AsyncImpl
}

// Accepts reports whether the signature accepts n arguments.
func (s Signature) Accepts(n int) bool {
	if s.Variadic {
		return n >= len(s.Params)-1
	}
	return n == len(s.Params)
}

// Param returns the declared type of the i-th argument.
func (s Signature) Param(i int) Type {
	if i >= len(s.Params) {
		return s.Params[len(s.Params)-1]
	}
	return s.Params[i]
}

// IsAsync reports whether the signature is asynchronous.
func (s Signature) IsAsync() bool { return s.Async != nil }

func (s Signature) sameParams(o Signature) bool {
	if s.Variadic != o.Variadic || len(s.Params) != len(o.Params) {
		return false
	}
	for i := range s.Params {
		if s.Params[i] != o.Params[i] {
			return false
		}
	}
	return true
}

// Operator is an immutable operator descriptor.
type Operator struct {
	Label   string
	Aliases []string
	// Infix operators are written between their two operands, prefix
	// operators before their single operand. All others are called with
	// function syntax.
	Infix      bool
	Prefix     bool
	Precedence int
	Assoc      Assoc
	// ErrorAware operators receive error and pending operands instead of
	// being short-circuited by them.
	ErrorAware bool
	Signatures []Signature
}

// IsFunction reports whether op is called with function syntax.
func (op *Operator) IsFunction() bool { return !op.Infix && !op.Prefix }

// Call carries what an operator implementation may use besides its
// arguments.
type Call struct {
	Env Env
	// Context is cancelled when the evaluation that made the call is
	// abandoned. Only asynchronous implementations need to watch it.
	Context context.Context
	// Label is the label of the operator being called.
	Label string
}

// Env gives operators access to table data at evaluation time. Reference
// tokens are resolved through it, so they always see current values.
type Env interface {
	// Deref returns the scalar value a reference denotes at the acting
	// slot: a cell's value, or the value of a column (row) reference in the
	// acting row (column).
	Deref(ref token.Token) token.Token
	// Values returns the current values of every cell a reference covers,
	// in row-major order.
	Values(ref token.Token) []token.Token
	// Now returns the current time.
	Now() time.Time
}
