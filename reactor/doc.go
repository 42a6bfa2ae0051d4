// Package reactor implements hierarchical, event-driven state machines.
//
// A reactor holds a WorkflowState: Running(S) until a transition finishes it
// with a value V. Its Definition maps each running state to a Reaction, a
// race of arms (an incoming event, a child's next state, an async
// computation) of which exactly one wins and yields the next Transition.
//
// ARCHITECTURE:
//
// Transition loop:
// Each reactor is bound to one sched.Scheduler. React, arm bookkeeping, state
// publication and tracing all run on it, one at a time. Async arms run on
// their own goroutines and marshal their results back onto the scheduler
// before they can win.
//
// Race discipline:
// The first arm whose trigger resolves claims the race. Claiming cancels all
// other arms: their mailbox requests are withdrawn (the values stay queued for
// the next reaction) and their contexts are cancelled. An arm that resolves
// after the claim has no effect.
//
// Composition:
// A parent owns children through Handles. A Handle converts the child's state
// stream into a mailbox on the parent's scheduler, and OnChildUpdate turns the
// child's next state into an arm of the parent's reaction.
//
// Publication order per transition:
//  1. Tracer.Record
//  2. subscribers (handles of parents, AsSingle, user code)
//  3. the SendSync caller whose event caused the transition is released
//  4. next React, or finish: the mailbox is closed and OnReady callbacks run
//
// Contract violations (double launch, a second outstanding request on one
// mailbox, an arm that declines its input, a reaction with no arms) panic with
// a *contract.Error.
package reactor
