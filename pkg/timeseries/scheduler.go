// Package timeseries implements the repeating scheduler that drives
// time-series derivations.
package timeseries

import (
	"sync"
	"time"
)

// Scheduler calls a tick function at a fixed interval on a background
// goroutine. The zero value is a stopped Scheduler.
//
// Every Start begins a new generation. A tick is only begun while its
// generation is current, so once Stop returns no further tick begins, and
// ticks can compare the generation they were started with against
// Generation to detect that they have been superseded.
type Scheduler struct {
	mu     sync.Mutex
	gen    uint64
	active bool
	stop   chan struct{}
}

// Start starts calling tick every interval, stopping a previous schedule
// first. The tick function receives the generation of this schedule. Ticks
// never overlap; a tick that runs longer than the interval delays the next.
func (s *Scheduler) Start(interval time.Duration, tick func(gen uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.gen++
	s.active = true
	s.stop = make(chan struct{})
	go s.loop(s.gen, s.stop, interval, tick)
}

func (s *Scheduler) loop(gen uint64, stop <-chan struct{}, interval time.Duration, tick func(uint64)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.current(gen) {
				return
			}
			tick(gen)
		}
	}
}

func (s *Scheduler) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && s.gen == gen
}

// Stop stops the schedule. It is safe to call from any goroutine, including
// from within a tick, and to call more than once. A tick that has already
// begun is not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if !s.active {
		return
	}
	s.active = false
	// Advance the generation so that ticks in flight see they are stale.
	s.gen++
	close(s.stop)
}

// Generation returns the current generation. It changes on every Start and
// Stop.
func (s *Scheduler) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Active reports whether a schedule is running.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
