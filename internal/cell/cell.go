// Package cell provides a single-assignment synchronization cell.
//
// A Cell has two irreversible sides: a value that may be set once and a
// callback that may be attached once. The callback fires exactly once, on
// whichever goroutine completes the pair. Setting twice or attaching twice is
// a contract violation.
package cell

import (
	"sync"

	"github.com/roach88/reactorcore/contract"
)

// Cell holds a value that is assigned at most once.
type Cell[T any] struct {
	mu       sync.Mutex
	value    T
	filled   bool
	callback func(T)
	fired    bool
}

// New returns an empty cell.
func New[T any]() *Cell[T] {
	return &Cell[T]{}
}

// Filled returns a cell that already holds v.
func Filled[T any](v T) *Cell[T] {
	return &Cell[T]{value: v, filled: true}
}

// Set assigns the value. If a callback is attached it fires on the caller's goroutine.
// Panics with DOUBLE_FILL if the cell already holds a value.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	if c.filled {
		c.mu.Unlock()
		contract.Violate(contract.CodeDoubleFill, "cell value set twice")
	}
	c.value = v
	c.filled = true
	fn := c.take()
	c.mu.Unlock()

	if fn != nil {
		fn(v)
	}
}

// OnValue attaches the callback. If the value is already present the callback
// fires immediately on the caller's goroutine.
// Panics with DOUBLE_SUBSCRIBE if a callback was attached before.
func (c *Cell[T]) OnValue(fn func(T)) {
	c.mu.Lock()
	if c.callback != nil || c.fired {
		c.mu.Unlock()
		contract.Violate(contract.CodeDoubleSubscribe, "cell callback attached twice")
	}
	c.callback = fn
	fire := c.take()
	v := c.value
	c.mu.Unlock()

	if fire != nil {
		fire(v)
	}
}

// Get returns the value and whether it has been set.
func (c *Cell[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.filled
}

// take returns the callback if both sides are present and marks it fired.
// Caller must hold c.mu.
func (c *Cell[T]) take() func(T) {
	if !c.filled || c.callback == nil || c.fired {
		return nil
	}
	fn := c.callback
	c.callback = nil
	c.fired = true
	return fn
}
