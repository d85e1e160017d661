package ops

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Registry maps operator labels and aliases to operators. Each evaluation
// context owns its own Registry, so custom operators never leak between
// contexts. A Registry is safe for concurrent use; registration is expected
// to be rare and to happen before heavy evaluation.
type Registry struct {
	mu      sync.RWMutex
	ops     map[string]*Operator
	names   map[string]string
	prefix  map[string]string
	symbols []string
}

// NewRegistry returns a Registry seeded with the built-in catalog.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	for _, op := range builtins() {
		if err := r.Register(op); err != nil {
			panic(fmt.Sprintf("bad builtin %q: %v", op.Label, err))
		}
	}
	return r
}

// NewEmptyRegistry returns a Registry with no operators.
func NewEmptyRegistry() *Registry {
	return &Registry{
		ops:    make(map[string]*Operator),
		names:  make(map[string]string),
		prefix: make(map[string]string),
	}
}

// Registration errors.
var (
	ErrEmptyLabel      = errors.New("operator label is empty")
	ErrNoSignature     = errors.New("operator has no signature")
	ErrNoImpl          = errors.New("signature has no implementation")
	ErrBadVariadic     = errors.New("variadic signature has no parameters")
	ErrInfixArity      = errors.New("infix operator signatures must take 2 arguments")
	ErrPrefixArity     = errors.New("prefix operator signatures must take 1 argument")
	ErrSyntaxConflict  = errors.New("operator syntax conflicts with the registered operator")
	ErrAliasConflict   = errors.New("alias is already used by another operator")
	ErrUnknownOperator = errors.New("no such operator")
)

func checkOperator(op *Operator) error {
	if op.Label == "" {
		return ErrEmptyLabel
	}
	if len(op.Signatures) == 0 {
		return ErrNoSignature
	}
	for _, sig := range op.Signatures {
		if (sig.Impl == nil) == (sig.Async == nil) {
			return ErrNoImpl
		}
		if sig.Variadic && len(sig.Params) == 0 {
			return ErrBadVariadic
		}
		if op.Infix && (sig.Variadic || len(sig.Params) != 2) {
			return ErrInfixArity
		}
		if op.Prefix && (sig.Variadic || len(sig.Params) != 1) {
			return ErrPrefixArity
		}
	}
	return nil
}

func sameSyntax(a, b *Operator) bool {
	return a.Infix == b.Infix && a.Prefix == b.Prefix &&
		a.Precedence == b.Precedence && a.Assoc == b.Assoc
}

// Register adds op. If an operator with the same label exists, the
// signatures of op are merged into it: a signature with the same parameter
// list replaces the existing one, others are added as overloads. The syntax
// (infix, prefix, precedence, associativity) of an overload must match.
func (r *Registry) Register(op *Operator) error {
	if err := checkOperator(op); err != nil {
		return fmt.Errorf("register %q: %w", op.Label, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	label := normalize(op.Label)
	if err := r.checkAliases(label, op); err != nil {
		return err
	}
	if old, ok := r.ops[label]; ok {
		if !sameSyntax(old, op) {
			return fmt.Errorf("register %q: %w", op.Label, ErrSyntaxConflict)
		}
		merged := *old
		merged.Signatures = mergeSignatures(old.Signatures, op.Signatures)
		merged.Aliases = mergeAliases(old.Aliases, op.Aliases)
		merged.ErrorAware = old.ErrorAware || op.ErrorAware
		r.install(label, &merged)
		return nil
	}
	cp := *op
	cp.Signatures = append([]Signature(nil), op.Signatures...)
	r.install(label, &cp)
	return nil
}

// Overload replaces the signatures of the operator with the given label by
// those of op. The label must already be registered; aliases and syntax are
// taken from op.
func (r *Registry) Overload(label string, op *Operator) error {
	if err := checkOperator(op); err != nil {
		return fmt.Errorf("overload %q: %w", label, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.names[normalize(label)]
	if !ok {
		return fmt.Errorf("overload %q: %w", label, ErrUnknownOperator)
	}
	old := r.ops[key]
	if err := r.checkAliases(key, op); err != nil {
		return err
	}
	r.uninstall(key, old)
	cp := *op
	cp.Label = old.Label
	cp.Signatures = append([]Signature(nil), op.Signatures...)
	r.install(key, &cp)
	return nil
}

func (r *Registry) checkAliases(label string, op *Operator) error {
	for _, alias := range append([]string{op.Label}, op.Aliases...) {
		table := r.names
		if op.Prefix && IsSymbol(alias) {
			table = r.prefix
		}
		if owner, ok := table[normalize(alias)]; ok && owner != label {
			return fmt.Errorf("register %q: alias %q: %w", op.Label, alias, ErrAliasConflict)
		}
	}
	return nil
}

// install must be called with r.mu held.
func (r *Registry) install(label string, op *Operator) {
	r.ops[label] = op
	for _, name := range append([]string{op.Label}, op.Aliases...) {
		if op.Prefix && IsSymbol(name) {
			// Symbols such as "-" are shared with infix operators and only
			// denote the prefix operator at operand position.
			r.prefix[name] = label
		} else {
			r.names[normalize(name)] = label
		}
	}
	r.rebuildSymbols()
}

// uninstall must be called with r.mu held.
func (r *Registry) uninstall(label string, op *Operator) {
	for k, v := range r.names {
		if v == label {
			delete(r.names, k)
		}
	}
	for k, v := range r.prefix {
		if v == label {
			delete(r.prefix, k)
		}
	}
	delete(r.ops, label)
}

func (r *Registry) rebuildSymbols() {
	seen := make(map[string]bool)
	r.symbols = r.symbols[:0]
	add := func(name string) {
		if IsSymbol(name) && !seen[name] {
			seen[name] = true
			r.symbols = append(r.symbols, name)
		}
	}
	for name := range r.names {
		add(name)
	}
	for name := range r.prefix {
		add(name)
	}
	// Longest first, so that "<=" is matched before "<".
	sort.Slice(r.symbols, func(i, j int) bool {
		if len(r.symbols[i]) != len(r.symbols[j]) {
			return len(r.symbols[i]) > len(r.symbols[j])
		}
		return r.symbols[i] < r.symbols[j]
	})
}

func mergeSignatures(old, add []Signature) []Signature {
	merged := append([]Signature(nil), old...)
outer:
	for _, sig := range add {
		for i, o := range merged {
			if o.sameParams(sig) {
				merged[i] = sig
				continue outer
			}
		}
		merged = append(merged, sig)
	}
	return merged
}

func mergeAliases(old, add []string) []string {
	merged := append([]string(nil), old...)
	for _, a := range add {
		found := false
		for _, o := range merged {
			if o == a {
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, a)
		}
	}
	return merged
}

// Lookup finds an operator by label or alias. Word names are matched
// case-insensitively.
func (r *Registry) Lookup(name string) (*Operator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	label, ok := r.names[normalize(name)]
	if !ok {
		return nil, false
	}
	return r.ops[label], true
}

// LookupPrefix finds the prefix operator denoted by a symbol or word at
// operand position.
func (r *Registry) LookupPrefix(name string) (*Operator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if label, ok := r.prefix[name]; ok {
		return r.ops[label], true
	}
	if label, ok := r.names[normalize(name)]; ok && r.ops[label].Prefix {
		return r.ops[label], true
	}
	return nil, false
}

// MatchSymbol returns the longest registered symbolic operator name that is
// a prefix of s.
func (r *Registry) MatchSymbol(s string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sym := range r.symbols {
		if strings.HasPrefix(s, sym) {
			return sym, true
		}
	}
	return "", false
}

// Labels returns the labels of all registered operators, sorted.
func (r *Registry) Labels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	labels := make([]string, 0, len(r.ops))
	for _, op := range r.ops {
		labels = append(labels, op.Label)
	}
	sort.Strings(labels)
	return labels
}

// Clone returns an independent copy of r. Operators are immutable, so they
// are shared.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := NewEmptyRegistry()
	for k, v := range r.ops {
		c.ops[k] = v
	}
	for k, v := range r.names {
		c.names[k] = v
	}
	for k, v := range r.prefix {
		c.prefix[k] = v
	}
	c.symbols = append([]string(nil), r.symbols...)
	return c
}

func normalize(name string) string {
	if IsSymbol(name) {
		return name
	}
	return strings.ToLower(name)
}

// IsSymbol reports whether name is made of punctuation, like "<=", as
// opposed to a word like "and".
func IsSymbol(name string) bool {
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return false
		}
	}
	return name != ""
}
