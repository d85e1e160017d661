package derive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"src.tabl.sh/pkg/eval"
	"src.tabl.sh/pkg/logutil"
	"src.tabl.sh/pkg/ops"
	"src.tabl.sh/pkg/parse"
	"src.tabl.sh/pkg/postfix"
	"src.tabl.sh/pkg/token"
)

var logger = logutil.GetLogger("[derive] ")

// Errors returned by Engine methods, in addition to those in derive.go.
var (
	ErrNotCell      = errors.New("values can only be set on cells")
	ErrNoDerivation = errors.New("element has no formula")
)

// Engine owns the derivations of a store.
type Engine struct {
	id     uuid.UUID
	store  Store
	reg    *ops.Registry
	ev     *eval.Evaluator
	cancel context.CancelFunc

	mu      sync.Mutex
	derivs  map[token.ElementID]*Derivation
	gens    map[token.ElementID]uint64
	pending map[*eval.Pending]*pendingEntry
	slots   map[slotKey]*eval.Pending
	dirty   map[token.ElementID]bool
	auto    bool
	pass    uint64
	// Closed and replaced whenever pending state may have changed.
	settled  chan struct{}
	onRecalc func(pass uint64, d *Derivation)
	clock    func() time.Time

	series   map[token.ElementID]*series
	ticks    map[token.ElementID]*tick
	nextTick int64
}

// NewEngine creates an Engine for a store, with a registry holding the
// built-in operators. Automatic recalculation is on.
func NewEngine(store Store) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		id:      uuid.New(),
		store:   store,
		reg:     ops.NewRegistry(),
		cancel:  cancel,
		derivs:  make(map[token.ElementID]*Derivation),
		gens:    make(map[token.ElementID]uint64),
		pending: make(map[*eval.Pending]*pendingEntry),
		slots:   make(map[slotKey]*eval.Pending),
		dirty:   make(map[token.ElementID]bool),
		auto:    true,
		settled: make(chan struct{}),
		clock:   time.Now,
		series:  make(map[token.ElementID]*series),
		ticks:   make(map[token.ElementID]*tick),
	}
	e.ev = &eval.Evaluator{
		Registry: e.reg, Env: engineEnv{e}, Context: ctx, Resolved: e.resolved}
	return e
}

// ID returns the identity of the engine, used in logs and persisted state.
func (e *Engine) ID() uuid.UUID { return e.id }

// Registry returns the engine's operator registry. Operators registered
// there are only visible to formulas set afterwards.
func (e *Engine) Registry() *ops.Registry { return e.reg }

// Store returns the store the engine works on.
func (e *Engine) Store() Store { return e.store }

// SetClock replaces the clock used by time operators and time-series ticks.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = now
}

// OnRecalc sets a function called after each derivation is evaluated during
// propagation, with the number of the propagation pass. It is called with the
// engine locked and must not call Engine methods.
func (e *Engine) OnRecalc(f func(pass uint64, d *Derivation)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onRecalc = f
}

// Close stops all time series and cancels every outstanding asynchronous
// evaluation.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.series {
		e.stopSeries(s)
	}
	e.cancel()
	for p, ent := range e.pending {
		p.Cancel()
		e.forget(p, ent)
	}
	e.broadcast()
}

// SetDerivation parses text and sets it as the formula of target, replacing
// any previous formula, then recalculates target and everything that depends
// on it. If text is invalid, an *InvalidExpressionError is returned and the
// previous formula stays in place.
func (e *Engine) SetDerivation(target token.ElementID, text string) (*Derivation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, err := e.compile(target, text, false)
	if err != nil {
		return nil, err
	}
	if old, ok := e.derivs[target]; ok && old.timeSeries {
		e.clearTimeSeries(target)
	}
	e.install(d)
	e.dirty[target] = true
	e.propagateIfAuto()
	return d, nil
}

func (e *Engine) compile(target token.ElementID, text string, timeSeries bool) (*Derivation, error) {
	switch e.store.Kind(target) {
	case token.CellRef, token.ColumnRef, token.RowRef:
	case token.Empty:
		return nil, fmt.Errorf("element %d: %w", target, ErrNoSuchElement)
	default:
		return nil, fmt.Errorf("element %d: %w", target, ErrInvalidTarget)
	}
	src := parse.Source{Name: "[formula]", Code: text}
	infix, err := parse.Parse(src, resolver{e, target})
	if err == nil {
		var pf token.Stack
		pf, err = postfix.Convert(src, infix, cycleCheck{e, target}, e.reg)
		if err == nil {
			return &Derivation{
				target:     target,
				text:       text,
				infix:      postfix.Render(pf, e.reg),
				postfix:    pf,
				precedents: precedents(pf),
				timeSeries: timeSeries,
			}, nil
		}
	}
	var perr *parse.Error
	if !errors.As(err, &perr) {
		return nil, err
	}
	return nil, &InvalidExpressionError{Target: target, Text: text, Err: perr}
}

func precedents(s token.Stack) []token.ElementID {
	var ids []token.ElementID
	seen := make(map[token.ElementID]bool)
	for _, ref := range s.Refs() {
		if id := ref.Ref.Elem; !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func (e *Engine) install(d *Derivation) {
	if e.derivs[d.target] != nil {
		e.cancelTarget(d.target)
	}
	e.derivs[d.target] = d
	logger.Printf("%s: set %v", e.short(), d)
}

// ClearDerivation removes the formula of target. Its cells keep their current
// values, except that values still pending become empty. It reports whether
// there was a formula.
func (e *Engine) ClearDerivation(target token.ElementID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.derivs[target]
	if !ok {
		return false
	}
	if d.timeSeries {
		e.clearTimeSeries(target)
	} else {
		e.changed(e.remove(target)...)
	}
	e.propagateIfAuto()
	return true
}

// remove removes the derivation of target and cancels its pending
// evaluations. It returns the cells whose pending values were reverted.
func (e *Engine) remove(target token.ElementID) []token.ElementID {
	delete(e.derivs, target)
	e.cancelTarget(target)
	var reverted []token.ElementID
	for _, cell := range e.store.Members(target) {
		if e.store.Value(cell).IsPending() {
			e.store.SetValue(cell, token.Token{})
			reverted = append(reverted, cell)
		}
	}
	logger.Printf("%s: cleared formula of element %d", e.short(), target)
	return reverted
}

// Derivation returns the formula of target as entered.
func (e *Engine) Derivation(target token.ElementID) (string, bool) {
	d, ok := e.Lookup(target)
	if !ok {
		return "", false
	}
	return d.text, true
}

// Lookup returns the derivation of target.
func (e *Engine) Lookup(target token.ElementID) (*Derivation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.derivs[target]
	return d, ok
}

// Derivations returns all derivations, ordered by target.
func (e *Engine) Derivations() []*Derivation {
	e.mu.Lock()
	defer e.mu.Unlock()
	ds := make([]*Derivation, 0, len(e.derivs))
	for _, d := range e.derivs {
		ds = append(ds, d)
	}
	sortByTarget(ds)
	return ds
}

func sortByTarget(ds []*Derivation) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].target < ds[j].target })
}

// SetValue writes a value into a cell. A formula set on the cell itself is
// removed, and evaluations still pending for the cell are cancelled.
// Dependents are recalculated.
func (e *Engine) SetValue(cell token.ElementID, v token.Token) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.store.Kind(cell) {
	case token.CellRef:
	case token.Empty:
		return fmt.Errorf("element %d: %w", cell, ErrNoSuchElement)
	default:
		return fmt.Errorf("element %d: %w", cell, ErrNotCell)
	}
	if _, ok := e.derivs[cell]; ok {
		delete(e.derivs, cell)
		e.cancelTarget(cell)
		logger.Printf("%s: formula of element %d overridden by a value", e.short(), cell)
	}
	slot := eval.Slot{Row: e.store.RowOf(cell), Col: e.store.ColumnOf(cell)}
	for key, p := range e.slots {
		if key.slot == slot {
			p.Cancel()
			e.forget(p, e.pending[p])
		}
	}
	e.store.SetValue(cell, v)
	e.changed(cell)
	return nil
}

// ValueChanged tells the engine that the store changed elements by other
// means than SetValue. Dependents are recalculated.
func (e *Engine) ValueChanged(ids ...token.ElementID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.changed(ids...)
}

// ElementDeleted tells the engine that an element has been removed from the
// store. Formulas set on the element or on cells that no longer exist, and
// formulas that read from elements that no longer exist, are removed; their
// targets keep their values. Everything else is recalculated.
func (e *Engine) ElementDeleted(id token.ElementID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	gone := func(x token.ElementID) bool { return x == id || e.store.Kind(x) == token.Empty }
	var targets []token.ElementID
	for target, d := range e.derivs {
		drop := gone(target)
		for _, p := range d.precedents {
			drop = drop || gone(p)
		}
		if drop {
			targets = append(targets, target)
		}
	}
	sortIDs(targets)
	var reverted []token.ElementID
	for _, target := range targets {
		if e.derivs[target].timeSeries {
			e.clearTimeSeries(target)
		} else {
			reverted = append(reverted, e.remove(target)...)
		}
	}
	for key, p := range e.slots {
		if gone(key.slot.Col) || key.slot.Row > 0 && gone(key.slot.Row) {
			p.Cancel()
			e.forget(p, e.pending[p])
		}
	}
	for table, s := range e.series {
		if gone(table) || gone(s.stamp) {
			e.stopSeries(s)
			delete(e.series, table)
		}
	}
	for target, d := range e.derivs {
		if !d.timeSeries {
			e.dirty[target] = true
		}
	}
	e.changed(reverted...)
	e.propagateIfAuto()
}

// Recalculate evaluates the formula of target and everything that depends on
// it, regardless of automatic recalculation.
func (e *Engine) Recalculate(target token.ElementID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.derivs[target]
	if !ok {
		return fmt.Errorf("element %d: %w", target, ErrNoDerivation)
	}
	if d.timeSeries {
		return nil
	}
	e.dirty[target] = true
	e.propagate()
	return nil
}

// RecalculateAll evaluates every formula except time-series ones in one
// propagation pass.
func (e *Engine) RecalculateAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for target, d := range e.derivs {
		if !d.timeSeries {
			e.dirty[target] = true
		}
	}
	e.propagate()
}

// SetAutoRecalculate turns automatic recalculation on or off. While it is
// off, changes accumulate; turning it back on runs a single propagation pass
// covering all of them.
func (e *Engine) SetAutoRecalculate(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	was := e.auto
	e.auto = on
	if on && !was {
		e.propagate()
	}
}

// AutoRecalculate reports whether automatic recalculation is on.
func (e *Engine) AutoRecalculate() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.auto
}

// changed marks the derivations reading any of ids as dirty.
func (e *Engine) changed(ids ...token.ElementID) {
	if len(ids) == 0 {
		return
	}
	for target, d := range e.derivs {
		if d.timeSeries || e.dirty[target] {
			continue
		}
	scan:
		for _, p := range d.precedents {
			for _, id := range ids {
				if e.store.Overlaps(p, id) {
					e.dirty[target] = true
					break scan
				}
			}
		}
	}
	for _, tk := range e.ticks {
		e.advance(tk)
	}
	e.propagateIfAuto()
}

func (e *Engine) propagateIfAuto() {
	if e.auto {
		e.propagate()
	}
}

// propagate evaluates the dirty derivations and everything depending on them,
// each once, in dependency order.
func (e *Engine) propagate() {
	if len(e.dirty) == 0 {
		return
	}
	var seed []*Derivation
	for target := range e.dirty {
		if d, ok := e.derivs[target]; ok && !d.timeSeries {
			seed = append(seed, d)
		}
	}
	e.dirty = make(map[token.ElementID]bool)
	order := e.order(e.closure(seed))
	if len(order) == 0 {
		return
	}
	e.pass++
	for _, d := range order {
		e.evaluate(d)
		if e.onRecalc != nil {
			e.onRecalc(e.pass, d)
		}
	}
	e.broadcast()
}

// evaluate evaluates d for every slot of its target and stores the results.
func (e *Engine) evaluate(d *Derivation) {
	for _, slot := range e.slotsOf(d.target) {
		cell, ok := e.store.Cell(slot.Row, slot.Col)
		if !ok {
			continue
		}
		key := slotKey{d.target, slot}
		if p, ok := e.slots[key]; ok {
			p.Cancel()
			e.forget(p, e.pending[p])
		}
		r := e.ev.Eval(d.postfix, slot)
		if r.Pending != nil {
			e.register(key, cell, nil, r.Pending)
		}
		e.store.SetValue(cell, r.Value)
	}
}

func (e *Engine) slotsOf(target token.ElementID) []eval.Slot {
	switch e.store.Kind(target) {
	case token.CellRef:
		return []eval.Slot{{Row: e.store.RowOf(target), Col: e.store.ColumnOf(target)}}
	case token.ColumnRef:
		rows := e.store.Rows(e.store.TableOf(target))
		slots := make([]eval.Slot, len(rows))
		for i, row := range rows {
			slots[i] = eval.Slot{Row: row, Col: target}
		}
		return slots
	case token.RowRef:
		cols := e.store.Columns(e.store.TableOf(target))
		slots := make([]eval.Slot, len(cols))
		for i, col := range cols {
			slots[i] = eval.Slot{Row: target, Col: col}
		}
		return slots
	}
	return nil
}

func (e *Engine) broadcast() {
	close(e.settled)
	e.settled = make(chan struct{})
}

func (e *Engine) short() string { return e.id.String()[:8] }

// engineEnv gives the evaluator access to the store.
type engineEnv struct{ e *Engine }

func (v engineEnv) Deref(ref token.Token, slot eval.Slot) token.Token {
	e := v.e
	id := ref.Ref.Elem
	var cell token.ElementID
	var ok bool
	switch ref.Kind {
	case token.ColumnRef:
		if slot.Row < 0 {
			return e.tickValue(slot.Row, id)
		}
		cell, ok = e.store.Cell(slot.Row, id)
	case token.RowRef:
		cell, ok = e.store.Cell(id, slot.Col)
	case token.CellRef:
		cell, ok = id, e.store.Kind(id) == token.CellRef
	default:
		return token.Err(token.TypeMismatch, fmt.Sprintf("%s has no single value", ref))
	}
	if !ok {
		return token.Token{}
	}
	return e.store.Value(cell)
}

func (v engineEnv) Values(ref token.Token) []token.Token {
	cells := v.e.store.Members(ref.Ref.Elem)
	vs := make([]token.Token, len(cells))
	for i, cell := range cells {
		vs[i] = v.e.store.Value(cell)
	}
	return vs
}

func (v engineEnv) Now() time.Time { return v.e.clock() }

// resolver resolves references for formulas set on an element.
type resolver struct {
	e    *Engine
	from token.ElementID
}

func (r resolver) Registry() *ops.Registry { return r.e.reg }

func (r resolver) ResolveRef(kind token.Kind, ref token.Ref) (token.ElementID, bool) {
	return r.e.store.Resolve(r.from, kind, ref)
}
