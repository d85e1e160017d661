package eval

import (
	"context"
	"sync"

	"src.tabl.sh/pkg/token"
)

// Pending is a suspended evaluation, waiting for an asynchronous operator to
// deliver its value.
type Pending struct {
	// Slot is the slot the suspended evaluation is for.
	Slot Slot
	// Label is the label of the operator being waited on.
	Label string

	ev      *Evaluator
	postfix token.Stack
	pos     int
	stack   token.Stack

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.Mutex
	// Set once a value has been delivered or the evaluation was cancelled.
	settled bool
	// Set by Resume.
	resumed bool
}

func newPending(ev *Evaluator, label string, postfix token.Stack, pos int, stack token.Stack, slot Slot) *Pending {
	ctx, cancel := context.WithCancel(ev.context())
	return &Pending{
		Slot: slot, Label: label,
		ev: ev, postfix: postfix, pos: pos, stack: stack,
		ctx: ctx, cancel: cancel,
	}
}

// Cancel abandons the suspended evaluation. The operator's context is
// cancelled and a value delivered afterwards is dropped. Cancel may be called
// more than once.
func (p *Pending) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settled = true
	p.cancel()
}

// Cancelled reports whether the evaluation was abandoned, either with Cancel
// or through the Evaluator's context.
func (p *Pending) Cancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.resumed && p.ctx.Err() != nil
}

// Context returns the context passed to the asynchronous operator.
func (p *Pending) Context() context.Context { return p.ctx }

func (p *Pending) resolve(t token.Token) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled || p.ctx.Err() != nil {
		return
	}
	p.settled = true
	if f := p.ev.Resolved; f != nil {
		go f(p, t)
	}
}

// release marks p as resumed and frees the operator's context.
func (p *Pending) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settled = true
	p.resumed = true
	p.cancel()
}
