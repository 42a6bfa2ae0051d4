package demo

import (
	"encoding/json"

	"github.com/roach88/reactorcore/reactor"
	"github.com/roach88/reactorcore/sched"
)

// ChildHandle is an Aggregator's view of one Counter.
type ChildHandle = reactor.Handle[Event, CounterState, int]

// AggregatorState is the aggregator's own count plus its children's latest snapshots.
type AggregatorState struct {
	Count    int
	Children []ChildHandle
}

// Total is the aggregator's count plus every child's count.
func (s AggregatorState) Total() int {
	total := s.Count
	for _, h := range s.Children {
		total += countOf(h.State())
	}
	return total
}

// MarshalJSON renders the snapshot counts instead of the handles.
func (s AggregatorState) MarshalJSON() ([]byte, error) {
	children := make([]int, len(s.Children))
	for i, h := range s.Children {
		children[i] = countOf(h.State())
	}
	return json.Marshal(struct {
		Count    int   `json:"count"`
		Children []int `json:"children"`
		Total    int   `json:"total"`
	}{s.Count, children, s.Total()})
}

func (s AggregatorState) withChild(i int, h ChildHandle) AggregatorState {
	children := make([]ChildHandle, len(s.Children))
	copy(children, s.Children)
	children[i] = h
	return AggregatorState{Count: s.Count, Children: children}
}

// Aggregator owns Counter children. Every child update and every
// Increment/Decrement sent to the aggregator itself is a transition.
// It never finishes.
type Aggregator struct {
	*reactor.Core[Event, AggregatorState, reactor.Never]
}

// NewAggregator launches children and wraps them as its own on s.
func NewAggregator(s *sched.Scheduler, children []*Counter, opts ...reactor.Option) *Aggregator {
	handles := make([]ChildHandle, len(children))
	for i, c := range children {
		handles[i] = c.LaunchAndHandle(s)
	}

	a := &Aggregator{}
	a.Core = reactor.New[Event, AggregatorState, reactor.Never](AggregatorState{Children: handles}, a, s, opts...)
	return a
}

// React implements reactor.Definition.
//
// Child arms are declared before the event arm: a child update that is
// already queued always wins over an aggregator event, so an event is only
// applied once every earlier child update has been folded in.
func (a *Aggregator) React(state AggregatorState) *reactor.Reaction[AggregatorState, reactor.Never] {
	return a.Build(func(b *reactor.Builder[Event, AggregatorState, reactor.Never]) {
		for i, h := range state.Children {
			reactor.OnChildUpdate(b, h, func(next ChildHandle) *reactor.Transition[AggregatorState, reactor.Never] {
				return b.Enter(state.withChild(i, next))
			})
		}
		b.OnEvent(func(e Event) *reactor.Transition[AggregatorState, reactor.Never] {
			switch e {
			case Increment:
				return b.Enter(AggregatorState{Count: state.Count + 1, Children: state.Children})
			case Decrement:
				return b.Enter(AggregatorState{Count: state.Count - 1, Children: state.Children})
			}
			return nil
		})
	})
}

// Total returns the current total.
func (a *Aggregator) Total() int {
	return a.Current().MustRunning().Total()
}
