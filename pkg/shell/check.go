package shell

import (
	"src.tabl.sh/pkg/ops"
	"src.tabl.sh/pkg/parse"
	"src.tabl.sh/pkg/postfix"
	"src.tabl.sh/pkg/token"
)

var checkRegistry = ops.NewRegistry()

// CheckFormula checks the syntax, arity and types of a formula without a
// table to resolve it in: every reference is taken to exist and references
// are never circular. The error is a *parse.Error if not nil.
func CheckFormula(formula string) error {
	src := parse.Source{Name: "[formula]", Code: formula}
	infix, err := parse.Parse(src, &looseResolver{reg: checkRegistry})
	if err != nil {
		return err
	}
	_, err = postfix.Convert(src, infix, nil, checkRegistry)
	return err
}

// looseResolver resolves every reference, giving the same element to the same
// reference.
type looseResolver struct {
	reg *ops.Registry
	ids map[string]token.ElementID
}

func (r *looseResolver) Registry() *ops.Registry { return r.reg }

func (r *looseResolver) ResolveRef(kind token.Kind, ref token.Ref) (token.ElementID, bool) {
	if r.ids == nil {
		r.ids = make(map[string]token.ElementID)
	}
	key := token.FormatRef(kind, ref)
	id, ok := r.ids[key]
	if !ok {
		id = token.ElementID(len(r.ids) + 1)
		r.ids[key] = id
	}
	return id, true
}
