package reactor

import (
	"context"
	"sync"

	"github.com/roach88/reactorcore/contract"
)

// Single is a value that becomes available once.
//
// Any number of callbacks may wait on it; each fires exactly once, either when
// the value is resolved or immediately if it already was.
type Single[V any] struct {
	mu      sync.Mutex
	value   V
	ready   bool
	waiters []func(V)
	done    chan struct{}
}

// NewSingle returns an unresolved Single.
func NewSingle[V any]() *Single[V] {
	return &Single[V]{done: make(chan struct{})}
}

// Resolved returns a Single already holding v.
func Resolved[V any](v V) *Single[V] {
	s := NewSingle[V]()
	s.Resolve(v)
	return s
}

// Resolve sets the value and runs the waiting callbacks on the caller's goroutine.
// Panics with DOUBLE_FILL if the Single was already resolved.
func (s *Single[V]) Resolve(v V) {
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		contract.Violate(contract.CodeDoubleFill, "single resolved twice")
	}
	s.value = v
	s.ready = true
	waiters := s.waiters
	s.waiters = nil
	close(s.done)
	s.mu.Unlock()

	for _, fn := range waiters {
		fn(v)
	}
}

// OnReady calls fn with the value once it is available.
func (s *Single[V]) OnReady(fn func(V)) {
	s.mu.Lock()
	if !s.ready {
		s.waiters = append(s.waiters, fn)
		s.mu.Unlock()
		return
	}
	v := s.value
	s.mu.Unlock()

	fn(v)
}

// Value returns the value, if resolved.
func (s *Single[V]) Value() (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.ready
}

// Done is closed when the value is resolved.
func (s *Single[V]) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the value is resolved or ctx ends.
func (s *Single[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-s.done:
		v, _ := s.Value()
		return v, nil
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// MapSingle derives a Single by mapping s's value with fn.
// If fn declines (returns false) the mapping panics with UNHANDLED_TRANSITION
// on the goroutine that resolved s.
func MapSingle[V, U any](s *Single[V], fn func(V) (U, bool)) *Single[U] {
	out := NewSingle[U]()
	s.OnReady(func(v V) {
		u, ok := fn(v)
		if !ok {
			contract.Violate(contract.CodeUnhandledTransition, "single mapper declined its value")
		}
		out.Resolve(u)
	})
	return out
}

// AsSingle exposes the final value of w as a Single.
func AsSingle[E, S, V any](w Workflow[E, S, V]) *Single[V] {
	out := NewSingle[V]()

	current, _ := w.Subscribe(func(ws WorkflowState[S, V]) {
		if v, ok := ws.Finished(); ok {
			out.Resolve(v)
		}
	})
	if v, ok := current.Finished(); ok {
		out.Resolve(v)
	}
	return out
}
