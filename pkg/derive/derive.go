// Package derive binds formulas to table elements and keeps derived values
// consistent as their inputs change.
//
// A Derivation is a formula set on a target element: a cell, or a whole column
// or row, in which case it is evaluated once for every slot of the target. The
// elements a formula reads from are its precedents. When a precedent changes,
// every derivation that reads it, directly or transitively, is evaluated again
// in dependency order, each exactly once per propagation pass.
//
// An Engine owns the derivations of one store together with its own operator
// registry. All Engine methods are safe for concurrent use; they are
// serialized by a single mutex, which is also taken when asynchronous
// operators deliver their results.
package derive

import (
	"errors"
	"fmt"

	"src.tabl.sh/pkg/parse"
	"src.tabl.sh/pkg/token"
)

// Store is the table storage an Engine works on. Elements are identified by
// token.ElementID; the kind of an element is given as the reference kind that
// denotes it, such as token.ColumnRef for a column.
//
// The engine calls Store methods with its mutex held and never concurrently.
type Store interface {
	// Resolve resolves a reference written in a formula set on element from.
	Resolve(from token.ElementID, kind token.Kind, ref token.Ref) (token.ElementID, bool)
	// Kind returns the kind of an element, or token.Empty if there is no
	// such element.
	Kind(id token.ElementID) token.Kind
	// Value returns the value of a cell.
	Value(cell token.ElementID) token.Token
	// SetValue sets the value of a cell. It must not notify the engine.
	SetValue(cell token.ElementID, v token.Token)
	// Cell returns the cell where a row and a column meet. If they belong to
	// different tables, the row at the same index in the column's table is
	// used.
	Cell(row, col token.ElementID) (token.ElementID, bool)
	// RowOf and ColumnOf return the row and the column of a cell.
	RowOf(cell token.ElementID) token.ElementID
	ColumnOf(cell token.ElementID) token.ElementID
	// TableOf returns the table an element belongs to; for a table, itself.
	TableOf(id token.ElementID) token.ElementID
	// Rows and Columns return the rows and columns of a table, in order.
	Rows(table token.ElementID) []token.ElementID
	Columns(table token.ElementID) []token.ElementID
	// Members returns the cells an element covers, in row-major order.
	Members(id token.ElementID) []token.ElementID
	// Overlaps reports whether two elements share at least one cell.
	Overlaps(a, b token.ElementID) bool
	// AppendRow adds a row at the end of a table.
	AppendRow(table token.ElementID) (token.ElementID, error)
}

// Derivation is a formula bound to a target element. A Derivation is
// immutable; setting a new formula on the target replaces it.
type Derivation struct {
	target     token.ElementID
	text       string
	infix      string
	postfix    token.Stack
	precedents []token.ElementID
	timeSeries bool
}

// Target returns the element the formula is set on.
func (d *Derivation) Target() token.ElementID { return d.target }

// Text returns the formula as entered.
func (d *Derivation) Text() string { return d.text }

// Infix returns the formula in canonical form.
func (d *Derivation) Infix() string { return d.infix }

// Postfix returns the formula in postfix form. The caller must not modify
// the returned stack.
func (d *Derivation) Postfix() token.Stack { return d.postfix }

// Precedents returns the elements the formula reads from, without duplicates,
// in order of first appearance.
func (d *Derivation) Precedents() []token.ElementID {
	return append([]token.ElementID(nil), d.precedents...)
}

// IsTimeSeries reports whether the derivation is evaluated on time-series
// ticks instead of on changes of its precedents.
func (d *Derivation) IsTimeSeries() bool { return d.timeSeries }

func (d *Derivation) String() string {
	return fmt.Sprintf("element %d = %s", d.target, d.infix)
}

// InvalidExpressionError is returned when a formula cannot be parsed or
// converted. The previous derivation of the target, if any, is left in place.
type InvalidExpressionError struct {
	Target token.ElementID
	Text   string
	Err    *parse.Error
}

func (e *InvalidExpressionError) Error() string {
	return fmt.Sprintf("invalid formula for element %d: %v", e.Target, e.Err)
}

func (e *InvalidExpressionError) Unwrap() error { return e.Err }

// Status returns the status code of the parse or conversion failure.
func (e *InvalidExpressionError) Status() parse.StatusCode { return e.Err.Code }

// Errors returned by Engine methods.
var (
	ErrNoSuchElement = errors.New("no such element")
	ErrInvalidTarget = errors.New("formulas can only be set on cells, columns and rows")
	ErrNoTimeSeries  = errors.New("time series not enabled for this table")
)
