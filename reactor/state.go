package reactor

import "fmt"

// Status is the externally visible phase of a workflow.
type Status string

const (
	// StatusRunning marks a non-terminal state.
	StatusRunning Status = "running"

	// StatusFinished marks the terminal value.
	StatusFinished Status = "finished"
)

// Never is the final-value type of workflows that never finish.
//
// A Never value is never produced by the engine; OnReady on such a workflow
// is a no-op.
type Never struct{}

// WorkflowState is either Running(S) or Finished(V).
//
// Finished is terminal: once a workflow publishes it, no further states follow.
type WorkflowState[S, V any] struct {
	state    S
	value    V
	finished bool
}

// RunningState wraps s as a running state.
func RunningState[S, V any](s S) WorkflowState[S, V] {
	return WorkflowState[S, V]{state: s}
}

// FinishedState wraps v as the terminal state.
func FinishedState[S, V any](v V) WorkflowState[S, V] {
	return WorkflowState[S, V]{value: v, finished: true}
}

// Running returns the running state, if the workflow has not finished.
func (w WorkflowState[S, V]) Running() (S, bool) {
	if w.finished {
		var zero S
		return zero, false
	}
	return w.state, true
}

// Finished returns the final value, if the workflow has finished.
func (w WorkflowState[S, V]) Finished() (V, bool) {
	if !w.finished {
		var zero V
		return zero, false
	}
	return w.value, true
}

// IsFinished reports whether w is the terminal state.
func (w WorkflowState[S, V]) IsFinished() bool {
	return w.finished
}

// Status returns the phase of w.
func (w WorkflowState[S, V]) Status() Status {
	if w.finished {
		return StatusFinished
	}
	return StatusRunning
}

// MustRunning unwraps the running state of a workflow that cannot finish.
// Panics if w is finished.
func (w WorkflowState[S, V]) MustRunning() S {
	if w.finished {
		panic(fmt.Sprintf("reactor: MustRunning on finished state %v", w.value))
	}
	return w.state
}

// Payload returns the running state or the final value, whichever w holds.
func (w WorkflowState[S, V]) Payload() any {
	if w.finished {
		return w.value
	}
	return w.state
}

// Transition is the outcome of a race arm: enter a new state or finish.
type Transition[S, V any] struct {
	state  S
	value  V
	finish bool
}

// EnterState continues running in s.
func EnterState[S, V any](s S) *Transition[S, V] {
	return &Transition[S, V]{state: s}
}

// FinishWith terminates the workflow with v.
func FinishWith[S, V any](v V) *Transition[S, V] {
	return &Transition[S, V]{value: v, finish: true}
}

// Apply returns the workflow state the transition leads to.
func (t *Transition[S, V]) Apply() WorkflowState[S, V] {
	if t.finish {
		return FinishedState[S](t.value)
	}
	return RunningState[S, V](t.state)
}

// IsFinish reports whether t terminates the workflow.
func (t *Transition[S, V]) IsFinish() bool {
	return t.finish
}

func isNever[V any]() bool {
	var zero V
	_, ok := any(zero).(Never)
	return ok
}
