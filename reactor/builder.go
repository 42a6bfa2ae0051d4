package reactor

import (
	"context"
	"time"
)

// Builder declares the arms of one Reaction.
//
// Each arm is a possible cause of the next transition: an incoming event, a
// child's next state, or an asynchronous computation. The first arm whose
// trigger resolves wins; the others are cancelled. Every arm must map its
// input to a transition: a mapper returning nil is fatal.
//
// A Reaction may hold at most one arm per mailbox: declaring two event arms,
// or two arms on the same child Handle, panics with SECOND_REQUEST.
//
// Arms are declared only inside the function passed to Core.Build. Mappers
// may keep using Enter and Finish afterwards.
type Builder[E, S, V any] struct {
	core *Core[E, S, V]
	race *race[S, V]
}

// Enter is EnterState with the builder's type parameters.
func (b *Builder[E, S, V]) Enter(s S) *Transition[S, V] {
	return EnterState[S, V](s)
}

// Finish is FinishWith with the builder's type parameters.
func (b *Builder[E, S, V]) Finish(v V) *Transition[S, V] {
	return FinishWith[S](v)
}

// OnEvent adds an arm that fires on the next event in the reactor's mailbox.
func (b *Builder[E, S, V]) OnEvent(mapper func(E) *Transition[S, V]) {
	watch(b.race, b.core.events, CauseEvent, func(env envelope[E]) (*Transition[S, V], func()) {
		return mapper(env.event), env.release
	})
}

// OnEventAsync adds an event arm whose mapper runs on its own goroutine.
// The arm wins as soon as the event is delivered; ctx is cancelled if the
// reactor is collected before the mapper returns.
func (b *Builder[E, S, V]) OnEventAsync(mapper func(ctx context.Context, e E) *Transition[S, V]) {
	watchAsync(b.race, b.core.events, CauseEvent,
		func(ctx context.Context, env envelope[E]) *Transition[S, V] {
			return mapper(ctx, env.event)
		},
		func(env envelope[E]) func() { return env.release },
	)
}

// OnAsync adds an arm that wins when fn returns, unless another arm wins first.
// fn's context is cancelled when it loses; a result it returns afterwards is
// discarded.
func (b *Builder[E, S, V]) OnAsync(fn func(ctx context.Context) *Transition[S, V]) {
	b.race.async(CauseAsync, fn)
}

// After adds an arm that fires fn once d has elapsed.
func (b *Builder[E, S, V]) After(d time.Duration, fn func() *Transition[S, V]) {
	b.OnAsync(func(ctx context.Context) *Transition[S, V] {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
			return fn()
		case <-ctx.Done():
			return nil
		}
	})
}

// OnChildUpdate adds an arm that fires when the child behind h publishes its
// next state. mapper receives h rebound to that state.
//
// Losing the race only withdraws this reaction's interest in the update; the
// update stays queued for the next reaction and the child keeps running.
func OnChildUpdate[E, S, V, CE, CS, CV any](
	b *Builder[E, S, V],
	h Handle[CE, CS, CV],
	mapper func(Handle[CE, CS, CV]) *Transition[S, V],
) {
	watch(b.race, h.tracker.states, CauseChild, func(ws WorkflowState[CS, CV]) (*Transition[S, V], func()) {
		return mapper(h.WithState(ws)), nil
	})
}

// OnChildUpdateAsync is OnChildUpdate with a mapper that runs on its own goroutine.
func OnChildUpdateAsync[E, S, V, CE, CS, CV any](
	b *Builder[E, S, V],
	h Handle[CE, CS, CV],
	mapper func(context.Context, Handle[CE, CS, CV]) *Transition[S, V],
) {
	watchAsync(b.race, h.tracker.states, CauseChild,
		func(ctx context.Context, ws WorkflowState[CS, CV]) *Transition[S, V] {
			return mapper(ctx, h.WithState(ws))
		},
		nil,
	)
}
