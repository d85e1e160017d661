package parse

import (
	"strconv"
	"strings"

	"src.tabl.sh/pkg/token"
)

var refKinds = map[string]token.Kind{
	"col":    token.ColumnRef,
	"column": token.ColumnRef,
	"row":    token.RowRef,
	"cell":   token.CellRef,
	"table":  token.TableRef,
	"set":    token.SubsetRef,
	"subset": token.SubsetRef,
}

// qualifier consumes "::" and the spaces around it if they follow.
func (ps *parser) qualifier() bool {
	save := ps.pos
	ps.skipSpace()
	if strings.HasPrefix(ps.text[ps.pos:], "::") {
		ps.pos += 2
		ps.skipSpace()
		return true
	}
	ps.pos = save
	return false
}

// qualified parses the reference after "qualifier::".
func (ps *parser) qualified(qualifier string, start int) *Error {
	var kw string
	if r := ps.peek(); r != 0 && isIdentStart(rune(r)) || r >= 0x80 {
		kw = strings.ToLower(ps.ident())
	}
	if kind, ok := refKinds[kw]; !ok || kind == token.TableRef {
		return ps.badReference(start,
			"%s:: must be followed by a column, row, cell or subset reference", qualifier)
	}
	return ps.reference(qualifier, kw, start)
}

// reference parses the address of a reference whose keyword has been
// consumed, resolves it and emits the reference token.
func (ps *parser) reference(qualifier, kw string, start int) *Error {
	kind := refKinds[kw]
	ref := token.Ref{Qualifier: qualifier}
	switch kind {
	case token.ColumnRef, token.RowRef:
		if !ps.address(&ref) {
			return ps.badReference(start, "%s must be followed by an index or a quoted label", kw)
		}
	case token.CellRef:
		ps.skipSpace()
		row, ok1 := ps.index()
		ps.skipSpace()
		comma := ps.peek() == ','
		if comma {
			ps.pos++
		}
		ps.skipSpace()
		col, ok2 := ps.index()
		if !(ok1 && comma && ok2) {
			return ps.badReference(start, "cell must be followed by a row and a column index, as in cell 1,2")
		}
		ref.Index, ref.Index2 = row, col
	case token.TableRef:
		ps.address(&ref)
	case token.SubsetRef:
		if !ps.name(&ref) {
			return ps.badReference(start, "%s must be followed by a name", kw)
		}
	}
	t := token.Token{Kind: kind, Ref: ref, Pos: start, End: ps.pos}
	id, ok := ps.res.ResolveRef(kind, ref)
	if !ok {
		return ps.errorAt(InvalidReference, start, ps.pos, "no such element: %s", token.FormatRef(kind, ref))
	}
	t.Ref.Elem = id
	return ps.emitOperand(t)
}

func (ps *parser) badReference(start int, format string, args ...any) *Error {
	end := ps.pos
	if end == start {
		end = len(ps.text)
	}
	return ps.errorAt(InvalidReference, start, end, format, args...)
}

// address parses an optional index or quoted label. The position is left
// unchanged if there is neither.
func (ps *parser) address(ref *token.Ref) bool {
	save := ps.pos
	ps.skipSpace()
	switch c := ps.peek(); {
	case isDigit(c):
		if i, ok := ps.index(); ok {
			ref.Index = i
			return true
		}
	case c == '"' || c == '\'':
		if s, err := ps.stringLiteral(); err == nil {
			ref.Label = s
			return true
		}
	}
	ps.pos = save
	return false
}

// name parses a quoted or bare subset name.
func (ps *parser) name(ref *token.Ref) bool {
	save := ps.pos
	ps.skipSpace()
	switch c := ps.peek(); {
	case c == '"' || c == '\'':
		if s, err := ps.stringLiteral(); err == nil {
			ref.Label = s
			return true
		}
	case c != 0 && isIdentStart(rune(c)) || c >= 0x80:
		ref.Label = ps.ident()
		return ref.Label != ""
	}
	ps.pos = save
	return false
}

// index parses a positive integer that does not run into a word.
func (ps *parser) index() (int, bool) {
	start := ps.pos
	ps.digits()
	if ps.pos == start || isIdentByte(ps.peek()) || ps.peek() == '.' {
		return 0, false
	}
	i, err := strconv.Atoi(ps.text[start:ps.pos])
	if err != nil || i < 1 {
		return 0, false
	}
	return i, true
}
