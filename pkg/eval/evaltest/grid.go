package evaltest

import (
	"fmt"
	"time"

	"src.tabl.sh/pkg/eval"
	"src.tabl.sh/pkg/ops"
	"src.tabl.sh/pkg/token"
)

// Grid is a fixture table with numbered rows and columns. It implements
// parse.Resolver and eval.Env.
//
// Element IDs are derived from indices: column c is 100+c, row r is 200+r,
// cell (r, c) is 1000*r+c and the table itself is 1.
type Grid struct {
	Rows, Cols int
	Cells      map[[2]int]token.Token
	Clock      time.Time
	Reg        *ops.Registry
}

// NewGrid returns an empty Grid with the given size, the built-in operators
// and a fixed clock.
func NewGrid(rows, cols int) *Grid {
	return &Grid{
		Rows: rows, Cols: cols,
		Cells: make(map[[2]int]token.Token),
		Clock: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Reg:   ops.NewRegistry(),
	}
}

// Set sets cell (r, c).
func (g *Grid) Set(r, c int, v token.Token) { g.Cells[[2]int{r, c}] = v }

// SetColumn sets column c from row 1 downwards.
func (g *Grid) SetColumn(c int, vs ...token.Token) {
	for i, v := range vs {
		g.Set(i+1, c, v)
	}
}

// ColumnID returns the element ID of column c.
func ColumnID(c int) token.ElementID { return token.ElementID(100 + c) }

// RowID returns the element ID of row r.
func RowID(r int) token.ElementID { return token.ElementID(200 + r) }

// CellID returns the element ID of cell (r, c).
func CellID(r, c int) token.ElementID { return token.ElementID(1000*r + c) }

// SlotAt returns the slot of cell (r, c).
func SlotAt(r, c int) eval.Slot { return eval.Slot{Row: RowID(r), Col: ColumnID(c)} }

// Registry implements parse.Resolver.
func (g *Grid) Registry() *ops.Registry { return g.Reg }

// ResolveRef implements parse.Resolver.
func (g *Grid) ResolveRef(kind token.Kind, ref token.Ref) (token.ElementID, bool) {
	if ref.Qualifier != "" || ref.Label != "" {
		return 0, false
	}
	switch kind {
	case token.ColumnRef:
		return ColumnID(ref.Index), 1 <= ref.Index && ref.Index <= g.Cols
	case token.RowRef:
		return RowID(ref.Index), 1 <= ref.Index && ref.Index <= g.Rows
	case token.CellRef:
		ok := 1 <= ref.Index && ref.Index <= g.Rows && 1 <= ref.Index2 && ref.Index2 <= g.Cols
		return CellID(ref.Index, ref.Index2), ok
	case token.TableRef:
		return 1, ref.Index == 0
	}
	return 0, false
}

// Deref implements eval.Env.
func (g *Grid) Deref(ref token.Token, slot eval.Slot) token.Token {
	switch ref.Kind {
	case token.ColumnRef:
		return g.Cells[[2]int{int(slot.Row - 200), ref.Ref.Index}]
	case token.RowRef:
		return g.Cells[[2]int{ref.Ref.Index, int(slot.Col - 100)}]
	case token.CellRef:
		return g.Cells[[2]int{ref.Ref.Index, ref.Ref.Index2}]
	}
	return token.Err(token.TypeMismatch, fmt.Sprintf("%s has no single value", ref))
}

// Values implements eval.Env.
func (g *Grid) Values(ref token.Token) []token.Token {
	var vs []token.Token
	for r := 1; r <= g.Rows; r++ {
		for c := 1; c <= g.Cols; c++ {
			if covers(ref, r, c) {
				vs = append(vs, g.Cells[[2]int{r, c}])
			}
		}
	}
	return vs
}

func covers(ref token.Token, r, c int) bool {
	switch ref.Kind {
	case token.ColumnRef:
		return c == ref.Ref.Index
	case token.RowRef:
		return r == ref.Ref.Index
	case token.CellRef:
		return r == ref.Ref.Index && c == ref.Ref.Index2
	case token.TableRef:
		return true
	}
	return false
}

// Now implements eval.Env.
func (g *Grid) Now() time.Time { return g.Clock }
