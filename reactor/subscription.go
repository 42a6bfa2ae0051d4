package reactor

import (
	"weak"

	"github.com/roach88/reactorcore/sched"
)

// Latest is the last value seen from a finite producer. Ok is false until the
// producer emits its first value.
type Latest[T any] struct {
	Value T
	Ok    bool
}

// item is one step of a producer: a value, or the end of the stream.
type item[T any] struct {
	value  T
	closed bool
}

// Subscription surfaces a finite producer as a workflow: each value is
// published as Running, and closing the producer finishes the workflow with
// the last value (Ok false if there was none).
type Subscription[T any] struct {
	core   *Core[item[T], Latest[T], Latest[T]]
	source <-chan T
}

// NewSubscription wraps source. Nothing is read from it before Launch.
func NewSubscription[T any](source <-chan T, s *sched.Scheduler, opts ...Option) *Subscription[T] {
	sub := &Subscription[T]{source: source}
	sub.core = New[item[T], Latest[T], Latest[T]](
		Latest[T]{},
		ReactFunc[Latest[T], Latest[T]](sub.react),
		s,
		opts...,
	)
	return sub
}

func (sub *Subscription[T]) react(last Latest[T]) *Reaction[Latest[T], Latest[T]] {
	return sub.core.BuildEventReaction(func(it item[T]) *Transition[Latest[T], Latest[T]] {
		if it.closed {
			return FinishWith[Latest[T]](last)
		}
		return EnterState[Latest[T], Latest[T]](Latest[T]{Value: it.value, Ok: true})
	})
}

// Launch starts reading the producer. Panics with DOUBLE_LAUNCH when called twice.
func (sub *Subscription[T]) Launch() {
	sub.core.Launch()

	// The reader holds sub weakly and stops once sub has been collected,
	// even while source stays open and silent.
	ws := weak.Make(sub)
	source := sub.source
	gone := sub.core.lifetime.Done()
	go func() {
		for {
			var it item[T]
			select {
			case v, ok := <-source:
				it = item[T]{value: v, closed: !ok}
			case <-gone:
				return
			}

			sub := ws.Value()
			if sub == nil {
				return
			}
			sub.core.Send(it)
			if it.closed {
				return
			}
		}
	}()
}

// ID returns the subscription's instance ID.
func (sub *Subscription[T]) ID() string {
	return sub.core.ID()
}

// Send discards e: a subscription takes no events.
func (sub *Subscription[T]) Send(Never) {}

// Current returns the current state.
func (sub *Subscription[T]) Current() WorkflowState[Latest[T], Latest[T]] {
	return sub.core.Current()
}

// Subscribe registers fn for every later state.
func (sub *Subscription[T]) Subscribe(fn func(WorkflowState[Latest[T], Latest[T]])) (WorkflowState[Latest[T], Latest[T]], func()) {
	return sub.core.Subscribe(fn)
}

// OnReady calls fn with the last value once the producer is closed.
func (sub *Subscription[T]) OnReady(fn func(Latest[T])) {
	sub.core.OnReady(fn)
}

// Ready returns the final value as a Single.
func (sub *Subscription[T]) Ready() *Single[Latest[T]] {
	return sub.core.Ready()
}

// Handle wraps the subscription for use as a child of a reactor running on s.
func (sub *Subscription[T]) Handle(s *sched.Scheduler) Handle[Never, Latest[T], Latest[T]] {
	return NewHandle[Never, Latest[T], Latest[T]](sub, s)
}
