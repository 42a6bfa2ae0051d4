package reactor

import (
	"context"
	"log/slog"
	"sync"
	"weak"

	"github.com/roach88/reactorcore/contract"
	"github.com/roach88/reactorcore/internal/cell"
	"github.com/roach88/reactorcore/mailbox"
	"github.com/roach88/reactorcore/sched"
)

// race is the single-winner bookkeeping behind a Builder.
//
// Arms join the race with a cancel function. The first arm whose trigger
// resolves claims the race; claiming cancels every other arm, which returns
// their unconsumed mailbox values to the head of their queues and cancels the
// contexts of their async computations. Arms that resolve after the claim are
// ignored.
type race[S, V any] struct {
	sched    *sched.Scheduler
	logger   *slog.Logger
	lifetime context.Context
	result   *cell.Cell[outcome[S, V]]

	mu       sync.Mutex
	arms     []raceArm
	nextID   int
	declared int
	done     bool
}

type raceArm struct {
	id     int
	cancel func()
}

func newRace[S, V any](s *sched.Scheduler, logger *slog.Logger, lifetime context.Context) *race[S, V] {
	return &race[S, V]{
		sched:    s,
		logger:   logger,
		lifetime: lifetime,
		result:   cell.New[outcome[S, V]](),
	}
}

// enter counts a declared arm and reports whether the race is still open.
func (r *race[S, V]) enter() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.declared++
	return !r.done
}

// count returns the number of arms declared so far.
func (r *race[S, V]) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.declared
}

// join adds an arm. Returns false if the race was won in the meantime;
// the caller must then cancel its trigger itself.
func (r *race[S, V]) join(cancel func()) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return 0, false
	}
	id := r.nextID
	r.nextID++
	r.arms = append(r.arms, raceArm{id: id, cancel: cancel})
	return id, true
}

// claim makes arm id the winner. Returns false if another arm already won.
func (r *race[S, V]) claim(id int) bool {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return false
	}
	r.done = true
	losers := make([]func(), 0, len(r.arms))
	for _, a := range r.arms {
		if a.id != id {
			losers = append(losers, a.cancel)
		}
	}
	r.arms = nil
	r.mu.Unlock()

	for _, cancel := range losers {
		cancel()
	}
	return true
}

// settle publishes the winner's transition. A nil transition is an arm that
// declined its input.
func (r *race[S, V]) settle(t *Transition[S, V], cause Cause, release func()) {
	if t == nil {
		if release != nil {
			release()
		}
		contract.Violate(contract.CodeUnhandledTransition, "arm declined to produce a transition",
			"cause", string(cause))
	}
	r.result.Set(outcome[S, V]{transition: t, cause: cause, release: release})
}

// watch adds an arm triggered by the next value of m.
//
// apply maps the value to a transition and an optional release hook; it runs
// on m's scheduler after the value has been consumed.
func watch[T, S, V any](r *race[S, V], m *mailbox.Mailbox[T], cause Cause, apply func(T) (*Transition[S, V], func())) {
	if !r.enter() {
		return
	}

	req := m.Request()
	id, ok := r.join(req.Cancel)
	if !ok {
		req.Cancel()
		return
	}

	req.OnValue(func(v T) {
		if !r.claim(id) {
			return
		}
		req.Consume()
		t, release := apply(v)
		r.settle(t, cause, release)
	})
}

// watchAsync is watch with a mapper that runs off the scheduler.
//
// The arm wins when its value is delivered; the mapper then runs on its own
// goroutine and the result is marshalled back onto the race's scheduler.
func watchAsync[T, S, V any](
	r *race[S, V],
	m *mailbox.Mailbox[T],
	cause Cause,
	apply func(context.Context, T) *Transition[S, V],
	gate func(T) func(),
) {
	if !r.enter() {
		return
	}

	req := m.Request()
	id, ok := r.join(req.Cancel)
	if !ok {
		req.Cancel()
		return
	}

	req.OnValue(func(v T) {
		if !r.claim(id) {
			return
		}
		req.Consume()

		var release func()
		if gate != nil {
			release = gate(v)
		}
		ctx, cancel := context.WithCancel(r.lifetime)
		r.spawn(ctx, cancel, func(ctx context.Context) *Transition[S, V] {
			return apply(ctx, v)
		}, func(rr *race[S, V], t *Transition[S, V]) {
			rr.settle(t, cause, release)
		})
	})
}

// async adds an arm whose trigger is the completion of fn.
//
// fn runs on its own goroutine with a context that is cancelled when another
// arm wins or the owning reactor is collected. Results that arrive after the
// race was won are discarded.
func (r *race[S, V]) async(cause Cause, fn func(context.Context) *Transition[S, V]) {
	if !r.enter() {
		return
	}

	ctx, cancel := context.WithCancel(r.lifetime)
	id, ok := r.join(cancel)
	if !ok {
		cancel()
		return
	}

	r.spawn(ctx, cancel, fn, func(rr *race[S, V], t *Transition[S, V]) {
		if !rr.claim(id) {
			rr.logger.Debug("async arm result discarded", "cause", string(cause))
			return
		}
		rr.settle(t, cause, nil)
	})
}

// spawn runs fn on a new goroutine and hands its result to done on the
// race's scheduler. The goroutine keeps only a weak reference to the race, so
// a pending computation does not keep an abandoned reactor alive.
func (r *race[S, V]) spawn(
	ctx context.Context,
	cancel context.CancelFunc,
	fn func(context.Context) *Transition[S, V],
	done func(*race[S, V], *Transition[S, V]),
) {
	wr := weak.Make(r)
	s := r.sched

	go func() {
		defer cancel()

		t := fn(ctx)

		rr := wr.Value()
		if rr == nil {
			return
		}
		s.Schedule(func() { done(rr, t) })
	}()
}
