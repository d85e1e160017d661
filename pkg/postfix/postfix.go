// Package postfix converts infix token stacks into postfix (reverse Polish)
// form, checking each operator application against the signatures in the
// registry.
package postfix

import (
	"errors"

	"src.tabl.sh/pkg/diag"
	"src.tabl.sh/pkg/ops"
	"src.tabl.sh/pkg/parse"
	"src.tabl.sh/pkg/token"
)

// Target is the element a formula is converted for.
type Target interface {
	// Reaches reports whether the element a reference token denotes is the
	// target, or depends on the target directly or transitively.
	Reaches(ref token.Token) bool
}

// Convert converts an infix stack produced by parse.Parse from src into
// postfix form. If target is not nil, references that would make the
// formula depend on its own target are rejected with CircularReference.
//
// The returned error is always of type *parse.Error if it is not nil.
func Convert(src parse.Source, infix token.Stack, target Target, reg *ops.Registry) (token.Stack, error) {
	cv := &converter{src: src, reg: reg, target: target}
	if err := cv.shunt(infix); err != nil {
		return nil, err
	}
	if err := cv.check(); err != nil {
		return nil, err
	}
	return cv.out, nil
}

type converter struct {
	src    parse.Source
	reg    *ops.Registry
	target Target
	out    token.Stack
	stack  token.Stack
}

func (cv *converter) errorAt(code parse.StatusCode, r diag.Ranger, format string, args ...any) *parse.Error {
	return parse.NewError(code, cv.src, r, format, args...)
}

func tokenRange(t token.Token) diag.Ranging { return diag.Ranging{From: t.Pos, To: t.End} }

// shunt reorders the tokens with the shunting-yard algorithm.
func (cv *converter) shunt(infix token.Stack) *parse.Error {
	for i, t := range infix {
		switch {
		case t.Kind.IsRef():
			if cv.target != nil && cv.target.Reaches(t) {
				return cv.errorAt(parse.CircularReference, tokenRange(t),
					"%s refers back to the element the formula is set on", t)
			}
			cv.out.Push(t)
		case t.Kind.IsValue():
			cv.out.Push(t)
		case t.Kind == token.Operator && t.Func:
			if i+1 < len(infix) && infix[i+1].Kind == token.LParen {
				cv.stack.Push(t)
			} else {
				cv.out.Push(t)
			}
		case t.Kind == token.Operator && t.Unary:
			cv.stack.Push(t)
		case t.Kind == token.Operator:
			op, err := cv.lookup(t)
			if err != nil {
				return err
			}
			cv.popWhile(func(top *ops.Operator) bool {
				return top.Precedence > op.Precedence ||
					top.Precedence == op.Precedence && op.Assoc == ops.Left
			})
			cv.stack.Push(t)
		case t.Kind == token.LParen:
			cv.stack.Push(t)
		case t.Kind == token.Comma:
			cv.popWhile(nil)
		case t.Kind == token.RParen:
			cv.popWhile(nil)
			if len(cv.stack) == 0 {
				return cv.errorAt(parse.UnbalancedParentheses, tokenRange(t), "unmatched )")
			}
			cv.stack.Pop()
			if top, ok := cv.stack.Peek(); ok && top.Kind == token.Operator && top.Func {
				cv.out.Push(cv.stack.Pop())
			}
		default:
			return cv.errorAt(parse.InvalidOperandLocation, tokenRange(t), "unexpected %s", t.Kind)
		}
	}
	for len(cv.stack) > 0 {
		t := cv.stack.Pop()
		if t.Kind == token.LParen {
			return cv.errorAt(parse.UnbalancedParentheses, tokenRange(t), "unclosed parenthesis")
		}
		cv.out.Push(t)
	}
	return nil
}

// popWhile moves operators from the stack to the output until reaching a
// parenthesis or an operator for which pop returns false. A nil pop pops up to
// the parenthesis.
func (cv *converter) popWhile(pop func(top *ops.Operator) bool) {
	for {
		top, ok := cv.stack.Peek()
		if !ok || top.Kind != token.Operator || top.Func {
			return
		}
		if pop != nil {
			op, err := cv.lookup(top)
			if err != nil || !pop(op) {
				return
			}
		}
		cv.out.Push(cv.stack.Pop())
	}
}

func (cv *converter) lookup(t token.Token) (*ops.Operator, *parse.Error) {
	var op *ops.Operator
	var ok bool
	if t.Unary {
		op, ok = cv.reg.LookupPrefix(t.Str)
	} else {
		op, ok = cv.reg.Lookup(t.Str)
	}
	if !ok {
		return nil, cv.errorAt(parse.NoSuchOperator, tokenRange(t), "no such operator: %s", t.Str)
	}
	return op, nil
}

// operand is the static type of a subexpression together with its extent in
// the source.
type operand struct {
	typ ops.Type
	diag.Ranging
}

// check simulates evaluation of the postfix stack on static types, resolving
// every operator application.
func (cv *converter) check() *parse.Error {
	var stack []operand
	for _, t := range cv.out {
		if t.Kind != token.Operator {
			stack = append(stack, operand{ops.TypeOf(t.Kind), tokenRange(t)})
			continue
		}
		op, perr := cv.lookup(t)
		if perr != nil {
			return perr
		}
		if t.Argc > len(stack) {
			return cv.errorAt(parse.MissingOperand, tokenRange(t), "%s is missing an operand", t.Str)
		}
		args := stack[len(stack)-t.Argc:]
		stack = stack[:len(stack)-t.Argc]
		types := make([]ops.Type, len(args))
		span := tokenRange(t)
		for i, a := range args {
			types[i] = a.typ
			span.From = min(span.From, a.From)
			span.To = max(span.To, a.To)
		}
		sig, err := ops.ResolveIn(op, types)
		if err != nil {
			return cv.resolveError(err, span, args)
		}
		result := sig.Result
		if result == ops.Void {
			result = ops.Any
		}
		stack = append(stack, operand{result, span})
	}
	if len(stack) != 1 {
		return cv.errorAt(parse.InvalidOperandLocation, diag.Ranging{From: 0, To: len(cv.src.Code)},
			"expression does not reduce to a single value")
	}
	return nil
}

func (cv *converter) resolveError(err error, span diag.Ranging, args []operand) *parse.Error {
	var (
		arity  *ops.ArityError
		typ    *ops.TypeError
		target *ops.TargetError
	)
	switch {
	case errors.As(err, &arity):
		return cv.errorAt(parse.ArgumentCountMismatch, span, "%s", err)
	case errors.As(err, &typ):
		return cv.errorAt(parse.ArgumentTypeMismatch, span, "%s", err)
	case errors.As(err, &target):
		return cv.errorAt(parse.InvalidFunctionTarget, args[target.Index].Ranging, "%s", err)
	}
	return cv.errorAt(parse.NoSuchOperator, span, "%s", err)
}
