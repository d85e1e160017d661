package ops

import (
	"fmt"
	"strings"
)

// NoSuchOperatorError is returned by Resolve when the label is unknown.
type NoSuchOperatorError struct {
	Name string
}

func (e *NoSuchOperatorError) Error() string {
	return fmt.Sprintf("no such operator: %s", e.Name)
}

// ArityError is returned by Resolve when no signature takes the given number
// of arguments.
type ArityError struct {
	Op     *Operator
	Actual int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s takes %s, but got %d", e.Op.Label, describeArity(e.Op), e.Actual)
}

// TypeError is returned by Resolve when a signature with the right arity
// exists but the argument types do not fit any of them.
type TypeError struct {
	Op     *Operator
	Actual []Type
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("wrong argument types for %s: got (%s), want %s",
		e.Op.Label, joinTypes(e.Actual), FormatSignatures(e.Op))
}

// TargetError is returned by Resolve when a parameter requires a reference
// but the argument cannot denote one, or the other way around.
type TargetError struct {
	Op    *Operator
	Index int
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("argument %d of %s must be a column, row, table or subset reference",
		e.Index+1, e.Op.Label)
}

// Resolve finds the operator for name and the signature matching the given
// argument types. Exact matches are preferred over matches that need
// widening (for example a boolean passed as a number).
func (r *Registry) Resolve(name string, args []Type) (*Operator, Signature, error) {
	op, ok := r.Lookup(name)
	if !ok {
		return nil, Signature{}, &NoSuchOperatorError{name}
	}
	sig, err := ResolveIn(op, args)
	return op, sig, err
}

// ResolvePrefix is like Resolve, but for a prefix operator.
func (r *Registry) ResolvePrefix(name string, arg Type) (*Operator, Signature, error) {
	op, ok := r.LookupPrefix(name)
	if !ok {
		return nil, Signature{}, &NoSuchOperatorError{name}
	}
	sig, err := ResolveIn(op, []Type{arg})
	return op, sig, err
}

// ResolveIn picks the signature of op matching args.
func ResolveIn(op *Operator, args []Type) (Signature, error) {
	var candidates []Signature
	for _, sig := range op.Signatures {
		if sig.Accepts(len(args)) {
			candidates = append(candidates, sig)
		}
	}
	if len(candidates) == 0 {
		return Signature{}, &ArityError{op, len(args)}
	}
	for _, strict := range []bool{true, false} {
		for _, sig := range candidates {
			if matches(sig, args, strict) {
				return sig, nil
			}
		}
	}
	// Report reference misuse separately: the argument is fine as a value
	// but the parameter wants the element itself.
	for _, sig := range candidates {
		for i, a := range args {
			if sig.Param(i) == Reference && !a.Has(Reference) {
				return Signature{}, &TargetError{op, i}
			}
		}
	}
	return Signature{}, &TypeError{op, args}
}

func matches(sig Signature, args []Type, strict bool) bool {
	for i, a := range args {
		if !accepts(sig.Param(i), a, strict) {
			return false
		}
	}
	return true
}

// accepts reports whether a parameter of type p can take an argument whose
// static type is a. In strict mode, the argument's possible kinds must
// overlap the parameter's; otherwise scalar widening is allowed the same way
// the evaluator coerces values at run time.
func accepts(p, a Type, strict bool) bool {
	if p == Reference {
		return a.Has(Reference)
	}
	scalar := a & Any
	if scalar == Void {
		return false
	}
	if p&scalar != 0 {
		return true
	}
	if strict {
		return false
	}
	switch {
	case p.Has(Text):
		return true
	case p.Has(Number):
		return scalar&(Logical|Text) != 0
	case p.Has(Logical):
		return scalar&Number != 0
	}
	return false
}

// FormatSignature renders one signature, as in "mean(reference, reference...)
// -> number".
func FormatSignature(label string, sig Signature) string {
	var sb strings.Builder
	sb.WriteString(label)
	sb.WriteByte('(')
	for i, p := range sig.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
		if sig.Variadic && i == len(sig.Params)-1 {
			sb.WriteString("...")
		}
	}
	sb.WriteByte(')')
	if sig.Result != Void {
		sb.WriteString(" -> ")
		sb.WriteString(sig.Result.String())
	}
	if sig.IsAsync() {
		sb.WriteString(" (async)")
	}
	return sb.String()
}

// FormatSignatures renders all signatures of op, separated by " or ".
func FormatSignatures(op *Operator) string {
	parts := make([]string, len(op.Signatures))
	for i, sig := range op.Signatures {
		parts[i] = FormatSignature(op.Label, sig)
	}
	return strings.Join(parts, " or ")
}

func describeArity(op *Operator) string {
	var parts []string
	seen := make(map[string]bool)
	for _, sig := range op.Signatures {
		var s string
		n := len(sig.Params)
		switch {
		case sig.Variadic:
			s = fmt.Sprintf("%d or more arguments", n-1)
		case n == 1:
			s = "1 argument"
		default:
			s = fmt.Sprintf("%d arguments", n)
		}
		if !seen[s] {
			seen[s] = true
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " or ")
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
