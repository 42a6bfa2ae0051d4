package reactor

import (
	"github.com/roach88/reactorcore/contract"
	"github.com/roach88/reactorcore/internal/cell"
)

// outcome is what a resolved Reaction hands to the transition loop.
type outcome[S, V any] struct {
	transition *Transition[S, V]
	cause      Cause

	// release wakes a SendSync caller once the transition is published. May be nil.
	release func()
}

// Reaction is a pending choice of the next transition.
//
// A Reaction resolves at most once. Reactions are built with Core.Build (a race
// of arms), or with Immediate and Idle.
type Reaction[S, V any] struct {
	result *cell.Cell[outcome[S, V]]

	// race is nil for reactions not built from arms.
	race *race[S, V]
}

// Immediate returns a reaction already resolved with t.
// Panics with UNHANDLED_TRANSITION if t is nil.
func Immediate[S, V any](t *Transition[S, V]) *Reaction[S, V] {
	if t == nil {
		contract.Violate(contract.CodeUnhandledTransition, "immediate reaction without a transition")
	}
	return &Reaction[S, V]{
		result: cell.Filled(outcome[S, V]{transition: t, cause: CauseImmediate}),
	}
}

// Idle returns a reaction that never resolves. A reactor in an idle state
// publishes nothing further and ignores its mailbox.
func Idle[S, V any]() *Reaction[S, V] {
	return &Reaction[S, V]{result: cell.New[outcome[S, V]]()}
}

// Resolved reports whether a winning transition has been chosen.
func (r *Reaction[S, V]) Resolved() bool {
	_, ok := r.result.Get()
	return ok
}
