package reactor

import (
	"weak"

	"github.com/roach88/reactorcore/sched"
)

// Observer exposes a live external value as a workflow that never finishes.
//
// Every Update publishes Running(v). Observers are launched on construction.
type Observer[T any] struct {
	core *Core[T, T, Never]
}

// NewObserver creates and launches an observer holding initial.
func NewObserver[T any](initial T, s *sched.Scheduler, opts ...Option) *Observer[T] {
	o := &Observer[T]{}
	o.core = New[T, T, Never](initial, ReactFunc[T, Never](o.react), s, opts...)
	o.core.Launch()
	return o
}

// FromChannel creates an observer fed by ch. The feeding goroutine stops when
// ch is closed or once the observer has been collected, even if ch never
// delivers again; the observer keeps its last value either way.
func FromChannel[T any](ch <-chan T, initial T, s *sched.Scheduler, opts ...Option) *Observer[T] {
	o := NewObserver(initial, s, opts...)

	wo := weak.Make(o)
	gone := o.core.lifetime.Done()
	go func() {
		for {
			select {
			case v, ok := <-ch:
				if !ok {
					return
				}
				o := wo.Value()
				if o == nil {
					return
				}
				o.Update(v)
			case <-gone:
				return
			}
		}
	}()

	return o
}

func (o *Observer[T]) react(T) *Reaction[T, Never] {
	return o.core.BuildEventReaction(func(v T) *Transition[T, Never] {
		return EnterState[T, Never](v)
	})
}

// ID returns the observer's instance ID.
func (o *Observer[T]) ID() string {
	return o.core.ID()
}

// Update publishes v.
func (o *Observer[T]) Update(v T) {
	o.core.Send(v)
}

// UpdateSync publishes v and waits until it is the current value.
func (o *Observer[T]) UpdateSync(v T) {
	o.core.SendSync(v)
}

// Send is Update.
func (o *Observer[T]) Send(v T) {
	o.core.Send(v)
}

// Value returns the current value.
func (o *Observer[T]) Value() T {
	return o.core.Current().MustRunning()
}

// Current returns the current state, which is always Running.
func (o *Observer[T]) Current() WorkflowState[T, Never] {
	return o.core.Current()
}

// Subscribe registers fn for every later value.
func (o *Observer[T]) Subscribe(fn func(WorkflowState[T, Never])) (WorkflowState[T, Never], func()) {
	return o.core.Subscribe(fn)
}

// OnReady is a no-op: observers never finish.
func (o *Observer[T]) OnReady(fn func(Never)) {
	o.core.OnReady(fn)
}

// Handle wraps the observer for use as a child of a reactor running on s.
func (o *Observer[T]) Handle(s *sched.Scheduler) Handle[T, T, Never] {
	return NewHandle[T, T, Never](o, s)
}
