package reactor

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"weak"

	"github.com/roach88/reactorcore/contract"
	"github.com/roach88/reactorcore/mailbox"
	"github.com/roach88/reactorcore/sched"
)

// Definition supplies the transition function of a reactor.
//
// React is called on the reactor's scheduler once per running state and must
// return a fresh Reaction; a Reaction value is never reused across calls.
type Definition[S, V any] interface {
	React(state S) *Reaction[S, V]
}

// ReactFunc adapts a function to Definition.
type ReactFunc[S, V any] func(state S) *Reaction[S, V]

// React calls f(state).
func (f ReactFunc[S, V]) React(state S) *Reaction[S, V] {
	return f(state)
}

// envelope carries an event and, for SendSync, the gate its caller waits on.
type envelope[E any] struct {
	event E
	done  chan struct{}
}

func (e envelope[E]) release() {
	if e.done != nil {
		close(e.done)
	}
}

// Core is the transition loop of a reactor with events E, running states S and
// final value V.
//
// Concrete reactors embed *Core and implement Definition:
//
//	type Counter struct {
//		*reactor.Core[Event, State, int]
//	}
//
//	c := &Counter{}
//	c.Core = reactor.New[Event, State, int](State{}, c, s)
//
// Lifecycle: a Core starts Running(initial) and does nothing until Launch.
// Launch records the initial state and starts the loop: React(state) builds a
// Reaction, its winning transition is published, and the loop repeats until a
// transition finishes the reactor.
//
// Thread-safety model:
//   - Send(), SendSync(), Current(), Subscribe(), OnReady(), Launch(): safe from any goroutine
//   - React(), arm mappers (except async ones), tracer, subscribers: run on the scheduler
//
// SendSync must not be called from the reactor's own scheduler; it would wait
// for a cycle that can only run after it returns.
//
// Scheduled continuations hold the Core weakly. Dropping every reference to a
// reactor stops its loop and cancels the contexts of its pending async arms.
type Core[E, S, V any] struct {
	id     string
	name   string
	sched  *sched.Scheduler
	def    Definition[S, V]
	logger *slog.Logger
	tracer Tracer
	seq    Sequencer

	events   *mailbox.Mailbox[envelope[E]]
	state    *property[S, V]
	ready    *Single[V]
	lifetime context.Context
	stop     context.CancelFunc

	mu       sync.Mutex
	launched bool

	// Scheduler-owned.
	inflight *Reaction[S, V]
}

// New creates a reactor in Running(initial) bound to scheduler s.
func New[E, S, V any](initial S, def Definition[S, V], s *sched.Scheduler, opts ...Option) *Core[E, S, V] {
	cfg := newConfig(opts)
	lifetime, stop := context.WithCancel(context.Background())

	c := &Core[E, S, V]{
		id:       cfg.id,
		name:     cfg.name,
		sched:    s,
		def:      def,
		logger:   cfg.logger,
		tracer:   cfg.tracer,
		seq:      cfg.seq,
		state:    newProperty(RunningState[S, V](initial)),
		ready:    NewSingle[V](),
		lifetime: lifetime,
		stop:     stop,
	}
	c.events = mailbox.New(s, mailbox.WithDiscard(c.discard))

	runtime.AddCleanup(c, func(stop context.CancelFunc) { stop() }, stop)

	return c
}

// ID returns the reactor's instance ID.
func (c *Core[E, S, V]) ID() string {
	return c.id
}

// Name returns the reactor's name.
func (c *Core[E, S, V]) Name() string {
	return c.name
}

// Scheduler returns the scheduler the reactor runs on.
func (c *Core[E, S, V]) Scheduler() *sched.Scheduler {
	return c.sched
}

// Launch starts the transition loop. It may be called exactly once.
//
// Panics with LAUNCH_FINISHED if the reactor has finished, and with
// DOUBLE_LAUNCH if it was launched before.
func (c *Core[E, S, V]) Launch() {
	c.mu.Lock()
	var code contract.Code
	var msg string
	switch {
	case c.state.get().IsFinished():
		code, msg = contract.CodeLaunchFinished, "launch after finish"
	case c.launched:
		code, msg = contract.CodeDoubleLaunch, "reactor launched twice"
	}
	if code != "" {
		c.mu.Unlock()
		contract.Violate(code, msg, "reactor", c.id)
	}
	c.launched = true
	c.mu.Unlock()

	c.logger.Info("reactor launched", "reactor", c.id, "name", c.name)

	c.schedule(func(c *Core[E, S, V]) {
		c.record(c.state.get(), CauseLaunch)
		c.cycle()
	})
}

// Launched reports whether Launch has been called.
func (c *Core[E, S, V]) Launched() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.launched
}

// Send enqueues e without waiting. Events sent before Launch are applied
// after it; events sent after the reactor finished are discarded.
func (c *Core[E, S, V]) Send(e E) {
	c.events.Enqueue(envelope[E]{event: e})
}

// SendSync enqueues e and blocks until the transition that consumed it has
// been published, so Current reflects e when SendSync returns. Returns
// immediately if e is discarded because the reactor finished.
//
// Never call SendSync from a task on the reactor's own scheduler: the event
// cannot be applied until that task returns.
func (c *Core[E, S, V]) SendSync(e E) {
	done := make(chan struct{})
	c.events.Enqueue(envelope[E]{event: e, done: done})
	<-done
}

// SendSyncContext is SendSync bounded by ctx. If ctx ends first it returns
// ctx.Err(); the event stays queued and is applied later.
func (c *Core[E, S, V]) SendSyncContext(ctx context.Context, e E) error {
	done := make(chan struct{})
	c.events.Enqueue(envelope[E]{event: e, done: done})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current returns the last published state.
func (c *Core[E, S, V]) Current() WorkflowState[S, V] {
	return c.state.get()
}

// Subscribe registers fn for every state published after the returned
// snapshot. fn runs on the reactor's scheduler and must not block.
// The returned function cancels the subscription.
func (c *Core[E, S, V]) Subscribe(fn func(WorkflowState[S, V])) (WorkflowState[S, V], func()) {
	return c.state.subscribe(fn)
}

// OnReady calls fn once with the final value. If the reactor already
// finished, fn runs immediately on the caller's goroutine; if it never
// finishes, fn never runs. A no-op for reactors whose final type is Never.
func (c *Core[E, S, V]) OnReady(fn func(V)) {
	if isNever[V]() {
		c.logger.Debug("OnReady on a reactor that never finishes", "reactor", c.id)
		return
	}
	c.ready.OnReady(fn)
}

// Ready returns the reactor's final value as a Single.
func (c *Core[E, S, V]) Ready() *Single[V] {
	return c.ready
}

// Build collects arms into a Reaction.
// Panics with EMPTY_REACTION if fn declares no arm; use Idle for a state
// that waits forever.
func (c *Core[E, S, V]) Build(fn func(b *Builder[E, S, V])) *Reaction[S, V] {
	r := newRace[S, V](c.sched, c.logger, c.lifetime)
	b := &Builder[E, S, V]{core: c, race: r}
	fn(b)
	// Arm closures may keep b; a pending async arm must not keep c alive.
	b.core, b.race = nil, nil

	if r.count() == 0 {
		contract.Violate(contract.CodeEmptyReaction, "reaction declared no arms", "reactor", c.id)
	}
	return &Reaction[S, V]{result: r.result, race: r}
}

// BuildEventReaction builds a reaction with a single event arm.
func (c *Core[E, S, V]) BuildEventReaction(mapper func(E) *Transition[S, V]) *Reaction[S, V] {
	return c.Build(func(b *Builder[E, S, V]) {
		b.OnEvent(mapper)
	})
}

// Handle wraps the reactor for use as a child of a reactor running on s.
func (c *Core[E, S, V]) Handle(s *sched.Scheduler) Handle[E, S, V] {
	return NewHandle[E, S, V](c, s)
}

// LaunchAndHandle creates the handle, then launches the reactor, so the
// handle observes every state the reactor publishes.
func (c *Core[E, S, V]) LaunchAndHandle(s *sched.Scheduler) Handle[E, S, V] {
	h := c.Handle(s)
	c.Launch()
	return h
}

// schedule runs fn on the scheduler if the Core is still alive by then.
func (c *Core[E, S, V]) schedule(fn func(*Core[E, S, V])) {
	wc := weak.Make(c)
	c.sched.Schedule(func() {
		if c := wc.Value(); c != nil {
			fn(c)
		}
	})
}

// cycle asks the definition for the reaction to the current state.
func (c *Core[E, S, V]) cycle() {
	s, running := c.state.get().Running()
	if !running {
		return
	}

	r := c.def.React(s)
	if r == nil {
		contract.Violate(contract.CodeEmptyReaction, "React returned no reaction", "reactor", c.id)
	}

	c.inflight = r
	r.result.OnValue(func(o outcome[S, V]) {
		c.commit(r, o)
	})
}

// commit publishes the winning transition, releases its SendSync caller and
// starts the next cycle.
func (c *Core[E, S, V]) commit(r *Reaction[S, V], o outcome[S, V]) {
	if c.inflight != r {
		return
	}
	c.inflight = nil

	next := o.transition.Apply()
	seq := c.record(next, o.cause)
	c.state.publish(next)

	c.logger.Debug("reactor transition",
		"reactor", c.id,
		"seq", seq,
		"cause", string(o.cause),
		"status", string(next.Status()),
	)

	if o.release != nil {
		o.release()
	}

	if v, finished := next.Finished(); finished {
		c.finish(v)
		return
	}
	c.schedule((*Core[E, S, V]).cycle)
}

func (c *Core[E, S, V]) finish(v V) {
	c.logger.Info("reactor finished", "reactor", c.id, "name", c.name)

	c.events.Close()
	c.stop()
	if !isNever[V]() {
		c.ready.Resolve(v)
	}
}

func (c *Core[E, S, V]) record(ws WorkflowState[S, V], cause Cause) int64 {
	seq := c.seq.Next()
	if c.tracer != nil {
		c.tracer.Record(Record{
			ReactorID: c.id,
			Name:      c.name,
			Seq:       seq,
			Cause:     cause,
			Status:    ws.Status(),
			State:     ws.Payload(),
		})
	}
	return seq
}

// discard drops an event sent after the reactor finished.
func (c *Core[E, S, V]) discard(env envelope[E]) {
	c.logger.Debug("event discarded after finish", "reactor", c.id)
	env.release()
}
