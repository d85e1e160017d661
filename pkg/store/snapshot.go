package store

import (
	"fmt"
	"time"

	"src.tabl.sh/pkg/derive"
	"src.tabl.sh/pkg/errutil"
	. "src.tabl.sh/pkg/store/storedefs"
	"src.tabl.sh/pkg/table"
	"src.tabl.sh/pkg/token"
)

// Capture takes a snapshot of a book and the engine deriving it. Pending and
// error values are not captured; they are recomputed on restore.
func Capture(e *derive.Engine, b *table.Book) *Snapshot {
	snap := &Snapshot{Engine: e.ID(), Saved: time.Now().UTC()}
	for _, t := range b.Tables() {
		rows, cols := b.Rows(t), b.Columns(t)
		ts := Table{Name: b.Label(t), Rows: len(rows), Cols: len(cols)}
		ts.RowLabels = labels(b, rows)
		ts.ColLabels = labels(b, cols)
		for i := range rows {
			for j := range cols {
				cell, _ := b.At(t, i+1, j+1)
				if v, ok := captureValue(b.Value(cell)); ok {
					v.Row, v.Col = i+1, j+1
					ts.Values = append(ts.Values, v)
				}
			}
		}
		snap.Tables = append(snap.Tables, ts)

		if stamp, interval, ok := e.TimeSeries(t); ok {
			snap.Series = append(snap.Series,
				Series{Table: ts.Name, Stamp: b.Index(stamp), Interval: interval})
		}
	}
	for _, d := range e.Derivations() {
		target := d.Target()
		f := Formula{Table: b.Label(b.TableOf(target)), Text: d.Text(), TimeSeries: d.IsTimeSeries()}
		switch b.Kind(target) {
		case token.ColumnRef:
			f.Kind, f.Col = KindColumn, b.Index(target)
		case token.RowRef:
			f.Kind, f.Row = KindRow, b.Index(target)
		case token.CellRef:
			f.Kind, f.Row, f.Col = KindCell, b.Index(b.RowOf(target)), b.Index(b.ColumnOf(target))
		default:
			continue
		}
		snap.Formulas = append(snap.Formulas, f)
	}
	return snap
}

// labels returns the labels of rows or columns, or nil if none is labeled.
func labels(b *table.Book, ids []token.ElementID) []string {
	ls := make([]string, len(ids))
	labeled := false
	for i, id := range ids {
		ls[i] = b.Label(id)
		labeled = labeled || ls[i] != ""
	}
	if !labeled {
		return nil
	}
	return ls
}

func captureValue(t token.Token) (Value, bool) {
	switch t.Kind {
	case token.Numeric:
		return Value{Kind: KindNum, Num: t.Num}, true
	case token.String:
		return Value{Kind: KindStr, Str: t.Str}, true
	case token.Boolean:
		return Value{Kind: KindBool, Bool: t.Bool}, true
	}
	return Value{}, false
}

func restoreValue(v Value) (token.Token, error) {
	switch v.Kind {
	case KindNum:
		return token.Num(v.Num), nil
	case KindStr:
		return token.Str(v.Str), nil
	case KindBool:
		return token.Bool(v.Bool), nil
	}
	return token.Token{}, fmt.Errorf("unknown value kind %q", v.Kind)
}

// Restore recreates the tables of a snapshot in b and installs its formulas on
// e, which must be an engine over b. Recalculation is suspended while
// restoring and a single pass runs at the end if e recalculates
// automatically. Restore carries on past individual failures and returns all
// of them.
func Restore(e *derive.Engine, b *table.Book, snap *Snapshot) error {
	var errs []error
	auto := e.AutoRecalculate()
	e.SetAutoRecalculate(false)
	defer e.SetAutoRecalculate(auto)

	for _, ts := range snap.Tables {
		t, err := b.AddTable(ts.Name, ts.Rows, ts.Cols)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		setLabels(b, b.Rows(t), ts.RowLabels)
		setLabels(b, b.Columns(t), ts.ColLabels)
		for _, v := range ts.Values {
			val, err := restoreValue(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("table %q: %w", ts.Name, err))
				continue
			}
			cell, ok := b.At(t, v.Row, v.Col)
			if !ok {
				errs = append(errs, fmt.Errorf("table %q has no cell %d,%d", ts.Name, v.Row, v.Col))
				continue
			}
			b.SetValue(cell, val)
		}
	}

	for _, s := range snap.Series {
		stamp, err := column(b, s.Table, s.Stamp)
		if err == nil {
			err = e.EnableTimeSeries(stamp, s.Interval)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	for _, f := range snap.Formulas {
		target, err := formulaTarget(b, f)
		if err == nil {
			if f.TimeSeries {
				_, err = e.SetTimeSeries(target, f.Text)
			} else {
				_, err = e.SetDerivation(target, f.Text)
			}
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errutil.Multi(errs...)
}

func setLabels(b *table.Book, ids []token.ElementID, ls []string) {
	for i, l := range ls {
		if i < len(ids) && l != "" {
			b.SetLabel(ids[i], l)
		}
	}
}

func column(b *table.Book, tableName string, i int) (token.ElementID, error) {
	t, ok := b.TableNamed(tableName)
	if !ok {
		return 0, fmt.Errorf("table %q: %w", tableName, table.ErrNoSuchElement)
	}
	col, ok := b.Column(t, i)
	if !ok {
		return 0, fmt.Errorf("table %q has no column %d", tableName, i)
	}
	return col, nil
}

func formulaTarget(b *table.Book, f Formula) (token.ElementID, error) {
	t, ok := b.TableNamed(f.Table)
	if !ok {
		return 0, fmt.Errorf("table %q: %w", f.Table, table.ErrNoSuchElement)
	}
	var id token.ElementID
	switch f.Kind {
	case KindColumn:
		id, ok = b.Column(t, f.Col)
	case KindRow:
		id, ok = b.Row(t, f.Row)
	case KindCell:
		id, ok = b.At(t, f.Row, f.Col)
	default:
		return 0, fmt.Errorf("unknown formula target kind %q", f.Kind)
	}
	if !ok {
		return 0, fmt.Errorf("table %q has no %s %d,%d", f.Table, f.Kind, f.Row, f.Col)
	}
	return id, nil
}
