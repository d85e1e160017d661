// Package eval evaluates postfix token stacks.
//
// Evaluation uses a single operand stack. Reference tokens are pushed as they
// are and only dereferenced when an operator takes them as a value, or when
// one is left as the result. Value errors are data: an error operand makes the
// operator's result that same error, unless the operator is error-aware.
//
// Asynchronous operators suspend evaluation. The Result then carries a
// *Pending holding the rest of the computation; when the operator delivers its
// value, the Evaluator's Resolved callback is called and the caller continues
// with Resume.
package eval

import (
	"context"
	"time"

	"src.tabl.sh/pkg/ops"
	"src.tabl.sh/pkg/token"
)

// Slot is the position a formula is evaluated for: the acting row and column.
// Either may be zero when the target has no such coordinate, such as a row
// formula evaluated for a column.
type Slot struct {
	Row, Col token.ElementID
}

// Env gives the evaluator access to table data.
type Env interface {
	// Deref returns the value ref denotes at slot. Column references use the
	// slot's row, row references the slot's column.
	Deref(ref token.Token, slot Slot) token.Token
	// Values returns the values of every cell ref covers.
	Values(ref token.Token) []token.Token
	// Now returns the current time.
	Now() time.Time
}

// Evaluator evaluates postfix stacks against an Env.
type Evaluator struct {
	Registry *ops.Registry
	Env      Env
	// Context is the parent of the contexts passed to asynchronous
	// operators. If nil, context.Background() is used.
	Context context.Context
	// Resolved is called on a new goroutine when an asynchronous operator
	// delivers its result. It is called at most once per Pending, and not at
	// all if the Pending was cancelled first.
	Resolved func(p *Pending, t token.Token)
}

// Result is the outcome of an evaluation.
type Result struct {
	// Value is a value token, an error token or token.PendingToken.
	Value token.Token
	// Pending is set when evaluation is suspended on an asynchronous
	// operator. Value is then token.PendingToken. A pending Value with a nil
	// Pending means an operand was itself pending; such an evaluation is
	// simply repeated once the operand resolves.
	Pending *Pending
}

// Eval evaluates a postfix stack for slot.
func (ev *Evaluator) Eval(postfix token.Stack, slot Slot) Result {
	fr := &frame{ev: ev, postfix: postfix, slot: slot}
	return fr.run(0)
}

// Resume continues a suspended evaluation with the value t delivered by the
// asynchronous operator. Resuming a cancelled Pending yields a Cancelled
// error.
func (ev *Evaluator) Resume(p *Pending, t token.Token) Result {
	if p.Cancelled() {
		return Result{Value: token.Err(token.Cancelled, "")}
	}
	p.release()
	fr := &frame{ev: ev, postfix: p.postfix, slot: p.Slot, stack: p.stack.Clone()}
	fr.stack.Push(t)
	return fr.run(p.pos)
}

func (ev *Evaluator) context() context.Context {
	if ev.Context == nil {
		return context.Background()
	}
	return ev.Context
}

type frame struct {
	ev      *Evaluator
	postfix token.Stack
	slot    Slot
	stack   token.Stack
}

func (fr *frame) run(pos int) Result {
	for i := pos; i < len(fr.postfix); i++ {
		t := fr.postfix[i]
		if t.Kind != token.Operator {
			fr.stack.Push(t)
			continue
		}
		if p := fr.apply(t, i); p != nil {
			return Result{Value: token.PendingToken, Pending: p}
		}
	}
	if len(fr.stack) != 1 {
		return Result{Value: token.Err(token.InvalidArgument, "malformed formula")}
	}
	v := fr.stack[0]
	if v.Kind.IsRef() {
		v = fr.ev.Env.Deref(v, fr.slot)
	}
	return Result{Value: v}
}

// apply applies the operator t at position i of the postfix stack. It returns
// a non-nil Pending if the operator is asynchronous.
func (fr *frame) apply(t token.Token, i int) *Pending {
	if t.Argc > len(fr.stack) {
		fr.stack = fr.stack[:0]
		fr.stack.Push(token.Err(token.InvalidArgument, "malformed formula"))
		return nil
	}
	args := fr.stack.PopN(t.Argc)
	var op *ops.Operator
	var ok bool
	if t.Unary {
		op, ok = fr.ev.Registry.LookupPrefix(t.Str)
	} else {
		op, ok = fr.ev.Registry.Lookup(t.Str)
	}
	if !ok {
		fr.stack.Push(token.Err(token.TypeMismatch, "no such operator: "+t.Str))
		return nil
	}

	types := make([]ops.Type, len(args))
	for j, a := range args {
		types[j] = fr.dynamicType(a)
	}
	sig, err := ops.ResolveIn(op, types)
	if err != nil {
		fr.stack.Push(token.Err(token.TypeMismatch, err.Error()))
		return nil
	}
	for j, a := range args {
		p := sig.Param(j)
		if p != ops.Reference && a.Kind.IsRef() {
			a = fr.ev.Env.Deref(a, fr.slot)
		}
		args[j] = ops.Coerce(p, a)
	}
	if !op.ErrorAware {
		if poison, ok := poisoned(args); ok {
			fr.stack.Push(poison)
			return nil
		}
	}

	call := &ops.Call{Env: slotEnv{fr.ev.Env, fr.slot}, Context: fr.ev.context(), Label: op.Label}
	if !sig.IsAsync() {
		fr.stack.Push(sig.Impl(call, args))
		return nil
	}
	p := newPending(fr.ev, op.Label, fr.postfix, i+1, fr.stack.Clone(), fr.slot)
	call.Context = p.ctx
	sig.Async(call, args, p.resolve)
	return p
}

// dynamicType is the type used to pick a signature at run time. Column and
// row references can stand for their value at the slot as well as for the
// element.
func (fr *frame) dynamicType(a token.Token) ops.Type {
	switch a.Kind {
	case token.ColumnRef, token.RowRef:
		return ops.Reference | ops.DynamicType(fr.ev.Env.Deref(a, fr.slot))
	case token.CellRef:
		return ops.DynamicType(fr.ev.Env.Deref(a, fr.slot))
	case token.TableRef, token.SubsetRef:
		return ops.Reference
	}
	return ops.DynamicType(a)
}

// poisoned returns the first error among args, or a pending token if there is
// no error but some argument is pending.
func poisoned(args []token.Token) (token.Token, bool) {
	pending := false
	for _, a := range args {
		switch {
		case a.IsError():
			return a, true
		case a.IsPending():
			pending = true
		}
	}
	if pending {
		return token.PendingToken, true
	}
	return token.Token{}, false
}

// slotEnv binds an Env to a slot for operator implementations.
type slotEnv struct {
	env  Env
	slot Slot
}

func (e slotEnv) Deref(ref token.Token) token.Token    { return e.env.Deref(ref, e.slot) }
func (e slotEnv) Values(ref token.Token) []token.Token { return e.env.Values(ref) }
func (e slotEnv) Now() time.Time                       { return e.env.Now() }
