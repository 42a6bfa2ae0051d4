package reactor

import "sync/atomic"

// Sequencer stamps published states with a strictly increasing sequence number.
type Sequencer interface {
	Next() int64
}

// Clock is a monotonic logical clock.
//
// Every state a reactor publishes is stamped from its Sequencer. Reactors get
// a private Clock by default; sharing one Clock across a tree of reactors
// yields a single total order over all of their transitions.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
