package session

import (
	"sync"
	"time"
)

// DwellGate is the minimum-dwell timer for transitional loading pages:
// an explicit gate ANDed with the resolver verdict, not a sleep. The
// page redirects only once both the gate has elapsed and the state has
// settled.
type DwellGate struct {
	mu      sync.Mutex
	timer   *time.Timer
	elapsed bool
	started bool
	ready   chan struct{}
}

// NewDwellGate creates an unstarted gate. An unstarted gate reports
// elapsed, so flows without a dwell requirement can skip Start.
func NewDwellGate() *DwellGate {
	ready := make(chan struct{})
	close(ready)
	return &DwellGate{elapsed: true, ready: ready}
}

// Start arms the gate for d. A non-positive duration elapses
// immediately. Restarting an armed gate resets it.
func (g *DwellGate) Start(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}

	g.started = true
	if d <= 0 {
		g.elapsed = true
		g.ready = make(chan struct{})
		close(g.ready)
		return
	}

	g.elapsed = false
	ready := make(chan struct{})
	g.ready = ready
	g.timer = time.AfterFunc(d, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		// A Stop or restart may have raced the timer firing.
		if g.ready != ready {
			return
		}
		g.elapsed = true
		g.timer = nil
		close(ready)
	})
}

// Elapsed reports whether the minimum dwell has passed.
func (g *DwellGate) Elapsed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.elapsed
}

// Ready returns a channel closed when the gate elapses.
func (g *DwellGate) Ready() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// Stop cancels a pending timer. The gate keeps its current elapsed
// value; a stopped, un-elapsed gate never elapses.
func (g *DwellGate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	// Replace the channel so the in-flight AfterFunc, if it already
	// fired, is ignored.
	if !g.elapsed {
		g.ready = make(chan struct{})
	}
}
