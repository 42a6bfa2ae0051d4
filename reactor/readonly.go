package reactor

import (
	"context"

	"github.com/roach88/reactorcore/sched"
)

// Pending is the running state of a Readonly workflow.
type Pending struct{}

// Readonly runs one computation on Launch and finishes with its result.
type Readonly[V any] struct {
	core *Core[Never, Pending, V]
	fn   func(context.Context) V
}

// NewReadonly wraps fn. fn runs on its own goroutine; its context is
// cancelled if the workflow is collected before fn returns.
func NewReadonly[V any](s *sched.Scheduler, fn func(ctx context.Context) V, opts ...Option) *Readonly[V] {
	r := &Readonly[V]{fn: fn}
	r.core = New[Never, Pending, V](Pending{}, ReactFunc[Pending, V](r.react), s, opts...)
	return r
}

func (r *Readonly[V]) react(Pending) *Reaction[Pending, V] {
	fn := r.fn
	return r.core.Build(func(b *Builder[Never, Pending, V]) {
		b.OnAsync(func(ctx context.Context) *Transition[Pending, V] {
			return b.Finish(fn(ctx))
		})
	})
}

// ID returns the workflow's instance ID.
func (r *Readonly[V]) ID() string {
	return r.core.ID()
}

// Launch starts the computation. Panics with DOUBLE_LAUNCH when called twice.
func (r *Readonly[V]) Launch() {
	r.core.Launch()
}

// Send discards e: a readonly workflow takes no events.
func (r *Readonly[V]) Send(Never) {}

// Current returns the current state.
func (r *Readonly[V]) Current() WorkflowState[Pending, V] {
	return r.core.Current()
}

// Subscribe registers fn for every later state.
func (r *Readonly[V]) Subscribe(fn func(WorkflowState[Pending, V])) (WorkflowState[Pending, V], func()) {
	return r.core.Subscribe(fn)
}

// OnReady calls fn with the result.
func (r *Readonly[V]) OnReady(fn func(V)) {
	r.core.OnReady(fn)
}

// Ready returns the result as a Single.
func (r *Readonly[V]) Ready() *Single[V] {
	return r.core.Ready()
}

// Handle wraps the workflow for use as a child of a reactor running on s.
func (r *Readonly[V]) Handle(s *sched.Scheduler) Handle[Never, Pending, V] {
	return NewHandle[Never, Pending, V](r, s)
}
