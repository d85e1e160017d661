package derive

import (
	"sort"

	"src.tabl.sh/pkg/token"
)

// cycleCheck rejects precedents from which the target of a new formula can
// be reached.
type cycleCheck struct {
	e      *Engine
	target token.ElementID
}

func (c cycleCheck) Reaches(ref token.Token) bool {
	return c.e.reaches(ref.Ref.Elem, c.target, make(map[token.ElementID]bool))
}

// reaches reports whether the value of from depends on target, either because
// they overlap or through a chain of derivations. The current derivation of
// target is ignored, since it is about to be replaced.
func (e *Engine) reaches(from, target token.ElementID, seen map[token.ElementID]bool) bool {
	if e.store.Overlaps(from, target) {
		return true
	}
	if seen[from] {
		return false
	}
	seen[from] = true
	for _, d := range e.derivs {
		if d.target == target || !e.store.Overlaps(d.target, from) {
			continue
		}
		for _, p := range d.precedents {
			if e.reaches(p, target, seen) {
				return true
			}
		}
	}
	return false
}

// dependsOn reports whether d reads from the target of p.
func (e *Engine) dependsOn(d, p *Derivation) bool {
	for _, id := range d.precedents {
		if e.store.Overlaps(id, p.target) {
			return true
		}
	}
	return false
}

// closure returns seed together with every non-time-series derivation that
// depends on it, directly or transitively.
func (e *Engine) closure(seed []*Derivation) []*Derivation {
	in := make(map[token.ElementID]bool)
	var all, queue []*Derivation
	for _, d := range seed {
		if !in[d.target] {
			in[d.target] = true
			all = append(all, d)
			queue = append(queue, d)
		}
	}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, d := range e.derivs {
			if in[d.target] || d.timeSeries || !e.dependsOn(d, p) {
				continue
			}
			in[d.target] = true
			all = append(all, d)
			queue = append(queue, d)
		}
	}
	return all
}

// order sorts derivations so that each comes after those it depends on. Ties
// are broken by target. Derivations left over by a cycle, which the cycle
// check normally prevents, are appended at the end.
func (e *Engine) order(ds []*Derivation) []*Derivation {
	sortByTarget(ds)
	indegree := make(map[*Derivation]int, len(ds))
	next := make(map[*Derivation][]*Derivation, len(ds))
	for _, p := range ds {
		for _, d := range ds {
			if d != p && e.dependsOn(d, p) {
				next[p] = append(next[p], d)
				indegree[d]++
			}
		}
	}
	var ready, out []*Derivation
	for _, d := range ds {
		if indegree[d] == 0 {
			ready = append(ready, d)
		}
	}
	for len(ready) > 0 {
		d := ready[0]
		ready = ready[1:]
		out = append(out, d)
		var freed []*Derivation
		for _, n := range next[d] {
			if indegree[n]--; indegree[n] == 0 {
				freed = append(freed, n)
			}
		}
		ready = append(ready, freed...)
		sortByTarget(ready)
	}
	if len(out) < len(ds) {
		for _, d := range ds {
			if indegree[d] > 0 {
				logger.Printf("%s: %v is part of a cycle", e.short(), d)
				out = append(out, d)
			}
		}
	}
	return out
}

// sortIDs sorts element IDs in ascending order.
func sortIDs(ids []token.ElementID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
