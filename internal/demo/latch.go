package demo

import (
	"github.com/roach88/reactorcore/reactor"
	"github.com/roach88/reactorcore/sched"
)

// Latch counts Increment events up to a limit and then stays put: once
// latched it no longer reads its mailbox.
type Latch struct {
	*reactor.Core[Event, CounterState, reactor.Never]
	limit int
}

// NewLatch creates a latch that holds at limit.
func NewLatch(s *sched.Scheduler, limit int, opts ...reactor.Option) *Latch {
	l := &Latch{limit: limit}
	l.Core = reactor.New[Event, CounterState, reactor.Never](CounterState{}, l, s, opts...)
	return l
}

// React implements reactor.Definition.
func (l *Latch) React(state CounterState) *reactor.Reaction[CounterState, reactor.Never] {
	if state.Count >= l.limit {
		return reactor.Idle[CounterState, reactor.Never]()
	}
	return l.BuildEventReaction(func(e Event) *reactor.Transition[CounterState, reactor.Never] {
		if e != Increment {
			return nil
		}
		return reactor.EnterState[CounterState, reactor.Never](CounterState{Count: state.Count + 1})
	})
}
