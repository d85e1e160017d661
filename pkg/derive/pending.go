package derive

import (
	"context"

	"src.tabl.sh/pkg/eval"
	"src.tabl.sh/pkg/token"
)

// slotKey identifies the evaluation of a derivation for one slot.
type slotKey struct {
	target token.ElementID
	slot   eval.Slot
}

// pendingEntry records a suspended evaluation. An entry is only honored if
// the generation of its target has not changed since it was created.
type pendingEntry struct {
	key  slotKey
	gen  uint64
	cell token.ElementID
	// Set for evaluations belonging to a time-series tick; cell is then zero.
	tick *tick
}

func (e *Engine) register(key slotKey, cell token.ElementID, tk *tick, p *eval.Pending) {
	e.pending[p] = &pendingEntry{key: key, gen: e.gens[key.target], cell: cell, tick: tk}
	e.slots[key] = p
}

func (e *Engine) forget(p *eval.Pending, ent *pendingEntry) {
	delete(e.pending, p)
	if ent != nil && e.slots[ent.key] == p {
		delete(e.slots, ent.key)
	}
}

// cancelTarget invalidates every outstanding evaluation for target.
func (e *Engine) cancelTarget(target token.ElementID) {
	e.gens[target]++
	for p, ent := range e.pending {
		if ent.key.target == target {
			p.Cancel()
			e.forget(p, ent)
		}
	}
	e.broadcast()
}

// resolved is called by the evaluator when an asynchronous operator delivers
// a value.
func (e *Engine) resolved(p *eval.Pending, t token.Token) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.pending[p]
	if !ok {
		return
	}
	e.forget(p, ent)
	if ent.gen != e.gens[ent.key.target] {
		return
	}
	r := e.ev.Resume(p, t)
	if ent.tick != nil {
		e.tickResolved(ent, r)
		e.broadcast()
		return
	}
	if _, ok := e.derivs[ent.key.target]; !ok {
		return
	}
	if r.Pending != nil {
		e.register(ent.key, ent.cell, nil, r.Pending)
	}
	e.store.SetValue(ent.cell, r.Value)
	e.changed(ent.cell)
	e.broadcast()
}

// IsPending reports whether any value of target is waiting for an
// asynchronous result.
func (e *Engine) IsPending(target token.ElementID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isPending(target)
}

func (e *Engine) isPending(target token.ElementID) bool {
	for key := range e.slots {
		if key.slot.Row <= 0 {
			continue
		}
		if cell, ok := e.store.Cell(key.slot.Row, key.slot.Col); ok && e.store.Overlaps(cell, target) {
			return true
		}
	}
	for _, tk := range e.ticks {
		if tk.series.cols[target] && !tk.done(target) {
			return true
		}
	}
	if e.store.Kind(target) == token.Empty {
		return false
	}
	for _, cell := range e.store.Members(target) {
		if e.store.Value(cell).IsPending() {
			return true
		}
	}
	return false
}

// WaitPending blocks until no value of target is pending, or ctx is done.
func (e *Engine) WaitPending(ctx context.Context, target token.ElementID) error {
	for {
		e.mu.Lock()
		if !e.isPending(target) {
			e.mu.Unlock()
			return nil
		}
		settled := e.settled
		e.mu.Unlock()
		select {
		case <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
