// Package testutil holds deterministic stand-ins for reactor IDs and
// sequence numbers, so scenario traces are byte-identical across runs.
package testutil

import (
	"sync"

	"github.com/roach88/reactorcore/reactor"
)

// DeterministicClock is a resettable reactor.Sequencer.
//
// Sharing one DeterministicClock across every reactor of a scenario stamps all
// their records from a single counter, giving the golden traces one total order.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

var _ reactor.Sequencer = (*DeterministicClock)(nil)

// NewDeterministicClock creates a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last number handed out, 0 if none.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock so the next call to Next returns 1.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
