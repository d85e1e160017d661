package derive

import (
	"fmt"
	"sort"
	"time"

	"src.tabl.sh/pkg/eval"
	"src.tabl.sh/pkg/ops"
	"src.tabl.sh/pkg/timeseries"
	"src.tabl.sh/pkg/token"
)

// series is the time-series state of a table.
type series struct {
	table    token.ElementID
	stamp    token.ElementID
	interval time.Duration
	cols     map[token.ElementID]bool
	sched    timeseries.Scheduler
}

// tick is a row being computed. Until all of its values are known it lives
// under a negative row ID that the store knows nothing about.
type tick struct {
	series *series
	row    token.ElementID
	at     time.Time
	values map[token.ElementID]token.Token
}

func (tk *tick) done(col token.ElementID) bool {
	v, ok := tk.values[col]
	return ok && !v.IsPending()
}

// EnableTimeSeries starts appending a row to the table of stampCol every
// interval. The new row's stampCol cell holds the time of the tick, and each
// column with a time-series formula holds that formula's value. Calling it
// again for the same table changes the timestamp column and the interval.
func (e *Engine) EnableTimeSeries(stampCol token.ElementID, interval time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.store.Kind(stampCol) {
	case token.ColumnRef:
	case token.Empty:
		return fmt.Errorf("element %d: %w", stampCol, ErrNoSuchElement)
	default:
		return fmt.Errorf("timestamp element %d is not a column", stampCol)
	}
	if interval <= 0 {
		return fmt.Errorf("invalid time-series interval %v", interval)
	}
	table := e.store.TableOf(stampCol)
	s := e.series[table]
	if s == nil {
		s = &series{table: table, cols: make(map[token.ElementID]bool)}
		e.series[table] = s
	}
	s.stamp = stampCol
	s.interval = interval
	if len(s.cols) > 0 {
		e.startSeries(s)
	}
	logger.Printf("%s: time series on table %d every %v", e.short(), table, interval)
	return nil
}

// TimeSeries returns the timestamp column and interval of the time series of
// a table.
func (e *Engine) TimeSeries(table token.ElementID) (stampCol token.ElementID, interval time.Duration, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.series[table]
	if !ok {
		return 0, 0, false
	}
	return s.stamp, s.interval, true
}

// SetTimeSeries sets a time-series formula on a column. The formula is only
// evaluated on ticks, for the row being appended. The scheduler starts with
// the first such column.
func (e *Engine) SetTimeSeries(col token.ElementID, text string) (*Derivation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store.Kind(col) != token.ColumnRef {
		return nil, fmt.Errorf("element %d: %w", col, ErrInvalidTarget)
	}
	s := e.series[e.store.TableOf(col)]
	if s == nil {
		return nil, ErrNoTimeSeries
	}
	if col == s.stamp {
		return nil, fmt.Errorf("timestamp column %d cannot have a formula", col)
	}
	d, err := e.compile(col, text, true)
	if err != nil {
		return nil, err
	}
	e.install(d)
	s.cols[col] = true
	if !s.sched.Active() {
		e.startSeries(s)
	}
	// Rows still being computed take the new formula.
	for _, tk := range e.ticksOf(s) {
		delete(tk.values, col)
		e.advance(tk)
	}
	return d, nil
}

// ClearTimeSeries removes the time-series formula of a column. Removing the
// last one stops the scheduler and discards rows still being computed.
// Calling it on a column without a time-series formula does nothing.
func (e *Engine) ClearTimeSeries(col token.ElementID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearTimeSeries(col)
}

func (e *Engine) clearTimeSeries(col token.ElementID) {
	if d, ok := e.derivs[col]; ok && d.timeSeries {
		delete(e.derivs, col)
		e.cancelTarget(col)
		logger.Printf("%s: cleared time-series formula of column %d", e.short(), col)
	}
	for _, s := range e.series {
		if !s.cols[col] {
			continue
		}
		delete(s.cols, col)
		if len(s.cols) == 0 {
			e.stopSeries(s)
			continue
		}
		// The remaining columns may be all a row was waiting for.
		for _, tk := range e.ticksOf(s) {
			delete(tk.values, col)
			e.advance(tk)
		}
		e.broadcast()
	}
}

// ticksOf returns the uncommitted ticks of s, oldest first.
func (e *Engine) ticksOf(s *series) []*tick {
	var tks []*tick
	for _, tk := range e.ticks {
		if tk.series == s {
			tks = append(tks, tk)
		}
	}
	sort.Slice(tks, func(i, j int) bool { return tks[i].row > tks[j].row })
	return tks
}

func (e *Engine) startSeries(s *series) {
	s.sched.Start(s.interval, func(gen uint64) { e.scheduledTick(s, gen) })
}

// stopSeries stops the scheduler of s and abandons its ticks.
func (e *Engine) stopSeries(s *series) {
	s.sched.Stop()
	for p, ent := range e.pending {
		if ent.tick != nil && ent.tick.series == s {
			p.Cancel()
			e.forget(p, ent)
		}
	}
	for row, tk := range e.ticks {
		if tk.series == s {
			delete(e.ticks, row)
		}
	}
	e.broadcast()
}

func (e *Engine) scheduledTick(s *series, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.series[s.table] != s || s.sched.Generation() != gen {
		return
	}
	e.tick(s)
}

// Tick runs one tick of every time series immediately.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	tables := make([]token.ElementID, 0, len(e.series))
	for table := range e.series {
		tables = append(tables, table)
	}
	sortIDs(tables)
	for _, table := range tables {
		e.tick(e.series[table])
	}
}

func (e *Engine) tick(s *series) {
	if len(s.cols) == 0 {
		return
	}
	e.nextTick++
	tk := &tick{
		series: s,
		row:    token.ElementID(-e.nextTick),
		at:     e.clock(),
		values: make(map[token.ElementID]token.Token),
	}
	e.ticks[tk.row] = tk
	e.advance(tk)
}

// advance evaluates the time-series formulas of a tick that are not yet
// known, and commits the tick when all are.
func (e *Engine) advance(tk *tick) {
	var ds []*Derivation
	for col := range tk.series.cols {
		if d, ok := e.derivs[col]; ok {
			ds = append(ds, d)
		}
	}
	for _, d := range e.order(ds) {
		key := slotKey{d.target, eval.Slot{Row: tk.row, Col: d.target}}
		if _, waiting := e.slots[key]; waiting || tk.done(d.target) {
			continue
		}
		r := e.ev.Eval(d.postfix, key.slot)
		tk.values[d.target] = r.Value
		if r.Pending != nil {
			e.register(key, 0, tk, r.Pending)
		}
	}
	for col := range tk.series.cols {
		if !tk.done(col) {
			return
		}
	}
	e.commit(tk)
}

func (e *Engine) tickResolved(ent *pendingEntry, r eval.Result) {
	tk := ent.tick
	if e.ticks[tk.row] != tk {
		return
	}
	tk.values[ent.key.target] = r.Value
	if r.Pending != nil {
		e.register(ent.key, 0, tk, r.Pending)
		return
	}
	e.advance(tk)
}

// commit appends the row of a completed tick to the store.
func (e *Engine) commit(tk *tick) {
	delete(e.ticks, tk.row)
	s := tk.series
	row, err := e.store.AppendRow(s.table)
	if err != nil {
		logger.Printf("%s: appending row to table %d: %v", e.short(), s.table, err)
		return
	}
	if cell, ok := e.store.Cell(row, s.stamp); ok {
		e.store.SetValue(cell, token.Num(ops.Unix(tk.at)))
	}
	for col, v := range tk.values {
		if cell, ok := e.store.Cell(row, col); ok {
			e.store.SetValue(cell, v)
		}
	}
	// Column formulas of the table have a new slot to fill.
	for target, d := range e.derivs {
		if !d.timeSeries && e.store.Kind(target) == token.ColumnRef &&
			e.store.TableOf(target) == s.table {
			e.dirty[target] = true
		}
	}
	e.broadcast()
	e.changed(row)
}

// tickValue returns the value of a column in a tick that has not been
// committed.
func (e *Engine) tickValue(row, col token.ElementID) token.Token {
	tk, ok := e.ticks[row]
	if !ok {
		return token.Token{}
	}
	if col == tk.series.stamp {
		return token.Num(ops.Unix(tk.at))
	}
	if v, ok := tk.values[col]; ok {
		return v
	}
	if tk.series.cols[col] {
		return token.PendingToken
	}
	return token.Token{}
}
