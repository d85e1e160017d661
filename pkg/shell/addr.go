package shell

import (
	"fmt"
	"strings"

	"src.tabl.sh/pkg/ops"
	"src.tabl.sh/pkg/parse"
	"src.tabl.sh/pkg/token"
)

// resolve parses an address such as "col 2", `row "total"`, "cell 1,3",
// "prices::col 1", "table" or "subset top" and resolves it in the current
// table.
func (s *Session) resolve(addr string) (token.Token, error) {
	addr = strings.TrimSpace(addr)
	stack, err := parse.Parse(parse.Source{Name: "[address]", Code: addr}, sessionResolver{s})
	if err != nil {
		return token.Token{}, err
	}
	if len(stack) != 1 || !stack[0].Kind.IsRef() {
		return token.Token{}, fmt.Errorf("%q is not an address", addr)
	}
	return stack[0], nil
}

type sessionResolver struct{ s *Session }

func (r sessionResolver) Registry() *ops.Registry { return r.s.Engine.Registry() }

func (r sessionResolver) ResolveRef(kind token.Kind, ref token.Ref) (token.ElementID, bool) {
	return r.s.Book.Resolve(r.s.cur, kind, ref)
}

// describe renders the address of an element, qualified with the table name
// unless it is in the current table.
func (s *Session) describe(id token.ElementID) string {
	b := s.Book
	t := b.TableOf(id)
	var ref token.Ref
	kind := b.Kind(id)
	switch kind {
	case token.ColumnRef, token.RowRef:
		ref.Index = b.Index(id)
	case token.CellRef:
		ref.Index, ref.Index2 = b.Index(b.RowOf(id)), b.Index(b.ColumnOf(id))
	case token.TableRef:
		return "table " + b.Label(id)
	case token.SubsetRef:
		ref.Label = b.Label(id)
	default:
		return fmt.Sprintf("element %d", id)
	}
	if t != s.cur {
		ref.Qualifier = b.Label(t)
	}
	return token.FormatRef(kind, ref)
}
