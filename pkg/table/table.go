// Package table is a small in-memory table store. It implements derive.Store
// and is what the tabl shell and the tests of the engine work on.
package table

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"src.tabl.sh/pkg/token"
)

// Errors returned by Book methods.
var (
	ErrNoSuchElement = errors.New("no such element")
	ErrDuplicateName = errors.New("duplicate name")
)

type element struct {
	kind  token.Kind
	table token.ElementID
	label string
	// For cells.
	row, col token.ElementID
	value    token.Token
	// For subsets.
	members []token.ElementID
}

type tableData struct {
	rows, cols []token.ElementID
	subsets    []token.ElementID
	// Cells by row and column.
	cells map[[2]token.ElementID]token.ElementID
}

// Book is a collection of named tables. Every table, row, column, cell and
// subset is an element with its own ID. The zero value is not usable; create
// one with New.
type Book struct {
	mu     sync.RWMutex
	last   token.ElementID
	elems  map[token.ElementID]*element
	tables []token.ElementID
	data   map[token.ElementID]*tableData
}

// New creates an empty Book.
func New() *Book {
	return &Book{
		elems: make(map[token.ElementID]*element),
		data:  make(map[token.ElementID]*tableData),
	}
}

func (b *Book) add(e *element) token.ElementID {
	b.last++
	b.elems[b.last] = e
	return b.last
}

// AddTable adds a table with the given name and size.
func (b *Book) AddTable(name string, rows, cols int) (token.ElementID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tableNamed(name); ok {
		return 0, fmt.Errorf("table %q: %w", name, ErrDuplicateName)
	}
	id := b.add(&element{kind: token.TableRef, label: name})
	b.elems[id].table = id
	b.tables = append(b.tables, id)
	b.data[id] = &tableData{cells: make(map[[2]token.ElementID]token.ElementID)}
	for i := 0; i < cols; i++ {
		b.addColumn(id)
	}
	for i := 0; i < rows; i++ {
		b.addRow(id)
	}
	return id, nil
}

func (b *Book) addRow(table token.ElementID) token.ElementID {
	td := b.data[table]
	row := b.add(&element{kind: token.RowRef, table: table})
	td.rows = append(td.rows, row)
	for _, col := range td.cols {
		td.cells[[2]token.ElementID{row, col}] = b.add(
			&element{kind: token.CellRef, table: table, row: row, col: col})
	}
	return row
}

func (b *Book) addColumn(table token.ElementID) token.ElementID {
	td := b.data[table]
	col := b.add(&element{kind: token.ColumnRef, table: table})
	td.cols = append(td.cols, col)
	for _, row := range td.rows {
		td.cells[[2]token.ElementID{row, col}] = b.add(
			&element{kind: token.CellRef, table: table, row: row, col: col})
	}
	return col
}

// AppendRow adds an empty row at the end of a table.
func (b *Book) AppendRow(table token.ElementID) (token.ElementID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.is(table, token.TableRef) {
		return 0, fmt.Errorf("table %d: %w", table, ErrNoSuchElement)
	}
	return b.addRow(table), nil
}

// AppendColumn adds an empty column at the end of a table.
func (b *Book) AppendColumn(table token.ElementID) (token.ElementID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.is(table, token.TableRef) {
		return 0, fmt.Errorf("table %d: %w", table, ErrNoSuchElement)
	}
	return b.addColumn(table), nil
}

// AddSubset adds a named subset of a table covering the given rows, columns
// and cells.
func (b *Book) AddSubset(table token.ElementID, name string, members ...token.ElementID) (token.ElementID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.is(table, token.TableRef) {
		return 0, fmt.Errorf("table %d: %w", table, ErrNoSuchElement)
	}
	if _, ok := b.subsetNamed(table, name); ok {
		return 0, fmt.Errorf("subset %q: %w", name, ErrDuplicateName)
	}
	for _, m := range members {
		e, ok := b.elems[m]
		if !ok || e.table != table || e.kind == token.TableRef || e.kind == token.SubsetRef {
			return 0, fmt.Errorf("subset member %d: %w", m, ErrNoSuchElement)
		}
	}
	id := b.add(&element{kind: token.SubsetRef, table: table, label: name,
		members: append([]token.ElementID(nil), members...)})
	b.data[table].subsets = append(b.data[table].subsets, id)
	return id, nil
}

// SetLabel sets the label of a row or column, used by references such as
// col "Price".
func (b *Book) SetLabel(id token.ElementID, label string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.elems[id]
	if !ok || (e.kind != token.RowRef && e.kind != token.ColumnRef) {
		return fmt.Errorf("element %d: %w", id, ErrNoSuchElement)
	}
	e.label = label
	return nil
}

// Label returns the label of a row or column, or the name of a table or
// subset.
func (b *Book) Label(id token.ElementID) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e, ok := b.elems[id]; ok {
		return e.label
	}
	return ""
}

// Delete removes a table, row, column or subset together with the cells it
// owns. Subsets lose the members that are removed.
func (b *Book) Delete(id token.ElementID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.elems[id]
	if !ok || e.kind == token.CellRef {
		return fmt.Errorf("element %d: %w", id, ErrNoSuchElement)
	}
	td := b.data[e.table]
	gone := map[token.ElementID]bool{id: true}
	switch e.kind {
	case token.TableRef:
		for eid, x := range b.elems {
			if x.table == id {
				delete(b.elems, eid)
			}
		}
		delete(b.data, id)
		b.tables = without(b.tables, id)
		return nil
	case token.RowRef:
		td.rows = without(td.rows, id)
		for _, col := range td.cols {
			k := [2]token.ElementID{id, col}
			gone[td.cells[k]] = true
			delete(td.cells, k)
		}
	case token.ColumnRef:
		td.cols = without(td.cols, id)
		for _, row := range td.rows {
			k := [2]token.ElementID{row, id}
			gone[td.cells[k]] = true
			delete(td.cells, k)
		}
	case token.SubsetRef:
		td.subsets = without(td.subsets, id)
	}
	for eid := range gone {
		delete(b.elems, eid)
	}
	for _, sid := range td.subsets {
		s := b.elems[sid]
		kept := s.members[:0]
		for _, m := range s.members {
			if !gone[m] {
				kept = append(kept, m)
			}
		}
		s.members = kept
	}
	return nil
}

func without(ids []token.ElementID, id token.ElementID) []token.ElementID {
	for i, x := range ids {
		if x == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

// Tables returns the tables in the order they were added.
func (b *Book) Tables() []token.ElementID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]token.ElementID(nil), b.tables...)
}

// TableNamed returns the table with the given name.
func (b *Book) TableNamed(name string) (token.ElementID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tableNamed(name)
}

func (b *Book) tableNamed(name string) (token.ElementID, bool) {
	for _, t := range b.tables {
		if b.elems[t].label == name {
			return t, true
		}
	}
	return 0, false
}

func (b *Book) subsetNamed(table token.ElementID, name string) (token.ElementID, bool) {
	for _, s := range b.data[table].subsets {
		if b.elems[s].label == name {
			return s, true
		}
	}
	return 0, false
}

// Row returns the row at a 1-based index.
func (b *Book) Row(table token.ElementID, i int) (token.ElementID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nth(table, i, false)
}

// Column returns the column at a 1-based index.
func (b *Book) Column(table token.ElementID, i int) (token.ElementID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nth(table, i, true)
}

func (b *Book) nth(table token.ElementID, i int, col bool) (token.ElementID, bool) {
	td, ok := b.data[table]
	if !ok {
		return 0, false
	}
	ids := td.rows
	if col {
		ids = td.cols
	}
	if i < 1 || i > len(ids) {
		return 0, false
	}
	return ids[i-1], true
}

// Index returns the 1-based index of a row or column in its table, or 0 if id
// is neither.
func (b *Book) Index(id token.ElementID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.elems[id]
	if !ok {
		return 0
	}
	switch e.kind {
	case token.RowRef:
		return indexOf(b.data[e.table].rows, id) + 1
	case token.ColumnRef:
		return indexOf(b.data[e.table].cols, id) + 1
	}
	return 0
}

// At returns the cell at 1-based row and column indices.
func (b *Book) At(table token.ElementID, row, col int) (token.ElementID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok1 := b.nth(table, row, false)
	c, ok2 := b.nth(table, col, true)
	if !ok1 || !ok2 {
		return 0, false
	}
	cell, ok := b.data[table].cells[[2]token.ElementID{r, c}]
	return cell, ok
}

func (b *Book) is(id token.ElementID, kind token.Kind) bool {
	e, ok := b.elems[id]
	return ok && e.kind == kind
}

// Resolve implements derive.Store. References are resolved in the table of
// from, unless they are qualified with a table name.
func (b *Book) Resolve(from token.ElementID, kind token.Kind, ref token.Ref) (token.ElementID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.elems[from]
	if !ok {
		return 0, false
	}
	table := e.table
	if ref.Qualifier != "" {
		if table, ok = b.tableNamed(ref.Qualifier); !ok {
			return 0, false
		}
	}
	td := b.data[table]
	switch kind {
	case token.ColumnRef, token.RowRef:
		ids := td.rows
		if kind == token.ColumnRef {
			ids = td.cols
		}
		if ref.Label != "" {
			for _, id := range ids {
				if b.elems[id].label == ref.Label {
					return id, true
				}
			}
			return 0, false
		}
		return b.nth(table, ref.Index, kind == token.ColumnRef)
	case token.CellRef:
		r, ok1 := b.nth(table, ref.Index, false)
		c, ok2 := b.nth(table, ref.Index2, true)
		if !ok1 || !ok2 {
			return 0, false
		}
		return td.cells[[2]token.ElementID{r, c}], true
	case token.TableRef:
		switch {
		case ref.Label != "":
			return b.tableNamed(ref.Label)
		case ref.Index > 0:
			if ref.Index > len(b.tables) {
				return 0, false
			}
			return b.tables[ref.Index-1], true
		}
		return table, true
	case token.SubsetRef:
		return b.subsetNamed(table, ref.Label)
	}
	return 0, false
}

// Kind implements derive.Store.
func (b *Book) Kind(id token.ElementID) token.Kind {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e, ok := b.elems[id]; ok {
		return e.kind
	}
	return token.Empty
}

// Value implements derive.Store.
func (b *Book) Value(cell token.ElementID) token.Token {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e, ok := b.elems[cell]; ok {
		return e.value
	}
	return token.Token{}
}

// SetValue implements derive.Store. Writes to elements other than cells are
// ignored.
func (b *Book) SetValue(cell token.ElementID, v token.Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.elems[cell]; ok && e.kind == token.CellRef {
		e.value = v
	}
}

// Cell implements derive.Store.
func (b *Book) Cell(row, col token.ElementID) (token.ElementID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok1 := b.elems[row]
	c, ok2 := b.elems[col]
	if !ok1 || !ok2 || r.kind != token.RowRef || c.kind != token.ColumnRef {
		return 0, false
	}
	if r.table != c.table {
		i := indexOf(b.data[r.table].rows, row)
		rows := b.data[c.table].rows
		if i >= len(rows) {
			return 0, false
		}
		row = rows[i]
	}
	cell, ok := b.data[c.table].cells[[2]token.ElementID{row, col}]
	return cell, ok
}

func indexOf(ids []token.ElementID, id token.ElementID) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}

// RowOf implements derive.Store.
func (b *Book) RowOf(cell token.ElementID) token.ElementID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e, ok := b.elems[cell]; ok {
		return e.row
	}
	return 0
}

// ColumnOf implements derive.Store.
func (b *Book) ColumnOf(cell token.ElementID) token.ElementID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e, ok := b.elems[cell]; ok {
		return e.col
	}
	return 0
}

// TableOf implements derive.Store.
func (b *Book) TableOf(id token.ElementID) token.ElementID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e, ok := b.elems[id]; ok {
		return e.table
	}
	return 0
}

// Rows implements derive.Store.
func (b *Book) Rows(table token.ElementID) []token.ElementID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if td, ok := b.data[table]; ok {
		return append([]token.ElementID(nil), td.rows...)
	}
	return nil
}

// Columns implements derive.Store.
func (b *Book) Columns(table token.ElementID) []token.ElementID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if td, ok := b.data[table]; ok {
		return append([]token.ElementID(nil), td.cols...)
	}
	return nil
}

// Members implements derive.Store.
func (b *Book) Members(id token.ElementID) []token.ElementID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.members(id)
}

func (b *Book) members(id token.ElementID) []token.ElementID {
	e, ok := b.elems[id]
	if !ok {
		return nil
	}
	td := b.data[e.table]
	var cells []token.ElementID
	switch e.kind {
	case token.CellRef:
		return []token.ElementID{id}
	case token.TableRef:
		for _, row := range td.rows {
			for _, col := range td.cols {
				cells = append(cells, td.cells[[2]token.ElementID{row, col}])
			}
		}
	case token.RowRef:
		for _, col := range td.cols {
			cells = append(cells, td.cells[[2]token.ElementID{id, col}])
		}
	case token.ColumnRef:
		for _, row := range td.rows {
			cells = append(cells, td.cells[[2]token.ElementID{row, id}])
		}
	case token.SubsetRef:
		seen := make(map[token.ElementID]bool)
		for _, m := range e.members {
			for _, c := range b.members(m) {
				if !seen[c] {
					seen[c] = true
					cells = append(cells, c)
				}
			}
		}
		b.sortRowMajor(td, cells)
	}
	return cells
}

func (b *Book) sortRowMajor(td *tableData, cells []token.ElementID) {
	pos := func(cell token.ElementID) (int, int) {
		e := b.elems[cell]
		return indexOf(td.rows, e.row), indexOf(td.cols, e.col)
	}
	sort.Slice(cells, func(i, j int) bool {
		ri, ci := pos(cells[i])
		rj, cj := pos(cells[j])
		return ri < rj || ri == rj && ci < cj
	})
}

// Overlaps implements derive.Store. A table overlaps everything in it, even
// when it has no rows, and so does every row with every column.
func (b *Book) Overlaps(x, y token.ElementID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ex, ok1 := b.elems[x]
	ey, ok2 := b.elems[y]
	if !ok1 || !ok2 || ex.table != ey.table {
		return false
	}
	if x == y || ex.kind == token.TableRef || ey.kind == token.TableRef {
		return true
	}
	if ex.kind == token.SubsetRef || ey.kind == token.SubsetRef {
		in := make(map[token.ElementID]bool)
		for _, c := range b.members(x) {
			in[c] = true
		}
		for _, c := range b.members(y) {
			if in[c] {
				return true
			}
		}
		return false
	}
	if ex.kind > ey.kind {
		ex, ey, x, y = ey, ex, y, x
	}
	// Kinds are now ordered column, row, cell.
	switch {
	case ex.kind == token.ColumnRef && ey.kind == token.RowRef:
		return true
	case ex.kind == token.ColumnRef && ey.kind == token.CellRef:
		return ey.col == x
	case ex.kind == token.RowRef && ey.kind == token.CellRef:
		return ey.row == x
	}
	return false
}
