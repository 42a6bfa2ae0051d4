package demo

import (
	"github.com/roach88/reactorcore/reactor"
	"github.com/roach88/reactorcore/sched"
)

// Event is a counter instruction.
type Event string

const (
	Increment Event = "inc"
	Decrement Event = "dec"
	Stop      Event = "stop"
)

// Valid reports whether e is a known event.
func (e Event) Valid() bool {
	switch e {
	case Increment, Decrement, Stop:
		return true
	}
	return false
}

// CounterState is the running state of a Counter.
type CounterState struct {
	Count int `json:"count"`
}

// Counter counts Increment and Decrement events and finishes with its count
// on Stop.
type Counter struct {
	*reactor.Core[Event, CounterState, int]
}

// NewCounter creates a counter at zero.
func NewCounter(s *sched.Scheduler, opts ...reactor.Option) *Counter {
	c := &Counter{}
	c.Core = reactor.New[Event, CounterState, int](CounterState{}, c, s, opts...)
	return c
}

// React implements reactor.Definition.
func (c *Counter) React(state CounterState) *reactor.Reaction[CounterState, int] {
	return c.Build(func(b *reactor.Builder[Event, CounterState, int]) {
		b.OnEvent(func(e Event) *reactor.Transition[CounterState, int] {
			switch e {
			case Increment:
				return b.Enter(CounterState{Count: state.Count + 1})
			case Decrement:
				return b.Enter(CounterState{Count: state.Count - 1})
			case Stop:
				return b.Finish(state.Count)
			}
			return nil
		})
	})
}

// Count returns the current count, running or final.
func (c *Counter) Count() int {
	return countOf(c.Current())
}

func countOf(ws reactor.WorkflowState[CounterState, int]) int {
	if v, ok := ws.Finished(); ok {
		return v
	}
	s, _ := ws.Running()
	return s.Count
}
