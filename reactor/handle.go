package reactor

import (
	"runtime"
	"weak"

	"github.com/roach88/reactorcore/mailbox"
	"github.com/roach88/reactorcore/sched"
)

// Workflow is what a parent needs from a child: a way to send it events and a
// stream of its published states. Core and every flavor implement it.
type Workflow[E, S, V any] interface {
	Send(e E)
	Current() WorkflowState[S, V]
	Subscribe(fn func(WorkflowState[S, V])) (WorkflowState[S, V], func())
}

// tracker turns a child's published states into a mailbox on the parent's
// scheduler.
type tracker[S, V any] struct {
	states *mailbox.Mailbox[WorkflowState[S, V]]
}

// Handle is a parent's view of a child workflow: the child itself, the
// tracker of its published states, and the snapshot the parent last adopted.
//
// Handles are values. WithState returns a new Handle sharing the child and the
// tracker, so parents thread updated snapshots through their own state
// without subscribing again.
type Handle[E, S, V any] struct {
	workflow Workflow[E, S, V]
	tracker  *tracker[S, V]
	state    WorkflowState[S, V]
}

// NewHandle starts tracking w on behalf of a parent running on s.
// The returned handle's snapshot is w's state at subscription time; every
// later state is queued for OnChildUpdate arms.
//
// The subscription lives as long as the tracker: once every Handle sharing it
// is gone, the child stops feeding it.
func NewHandle[E, S, V any](w Workflow[E, S, V], s *sched.Scheduler) Handle[E, S, V] {
	t := &tracker[S, V]{states: mailbox.New[WorkflowState[S, V]](s)}

	wt := weak.Make(t)
	current, cancel := w.Subscribe(func(ws WorkflowState[S, V]) {
		if t := wt.Value(); t != nil {
			t.states.Enqueue(ws)
		}
	})
	runtime.AddCleanup(t, func(cancel func()) { cancel() }, cancel)

	return Handle[E, S, V]{
		workflow: w,
		tracker:  t,
		state:    current,
	}
}

// Send forwards e to the child. Safe from any goroutine.
func (h Handle[E, S, V]) Send(e E) {
	h.workflow.Send(e)
}

// State returns the snapshot carried by this handle.
func (h Handle[E, S, V]) State() WorkflowState[S, V] {
	return h.state
}

// Workflow returns the child.
func (h Handle[E, S, V]) Workflow() Workflow[E, S, V] {
	return h.workflow
}

// NextState requests the child's next unseen state from the tracker.
// The request follows the mailbox protocol: consume it once used, cancel it
// otherwise.
func (h Handle[E, S, V]) NextState() *mailbox.Request[WorkflowState[S, V]] {
	return h.tracker.states.Request()
}

// Pending returns the number of child states not yet taken by the parent.
func (h Handle[E, S, V]) Pending() int {
	return h.tracker.states.Len()
}

// WithState returns a handle for the same child carrying ws as its snapshot.
func (h Handle[E, S, V]) WithState(ws WorkflowState[S, V]) Handle[E, S, V] {
	h.state = ws
	return h
}
