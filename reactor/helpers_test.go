package reactor

import (
	"testing"

	"github.com/roach88/reactorcore/sched"
)

type counterEvent int

const (
	inc counterEvent = iota
	dec
	stop
	bogus
)

// counter counts inc/dec events and finishes with its count on stop.
type counter struct {
	*Core[counterEvent, int, int]
}

func newCounter(s *sched.Scheduler, opts ...Option) *counter {
	c := &counter{}
	c.Core = New[counterEvent, int, int](0, c, s, opts...)
	return c
}

func (c *counter) React(n int) *Reaction[int, int] {
	return c.BuildEventReaction(func(e counterEvent) *Transition[int, int] {
		switch e {
		case inc:
			return EnterState[int, int](n + 1)
		case dec:
			return EnterState[int, int](n - 1)
		case stop:
			return FinishWith[int](n)
		}
		return nil
	})
}

type aggState struct {
	count    int
	children []Handle[counterEvent, int, int]
}

func (s aggState) total() int {
	total := s.count
	for _, h := range s.children {
		if n, ok := h.State().Running(); ok {
			total += n
		} else if v, ok := h.State().Finished(); ok {
			total += v
		}
	}
	return total
}

func (s aggState) withChild(i int, h Handle[counterEvent, int, int]) aggState {
	children := make([]Handle[counterEvent, int, int], len(s.children))
	copy(children, s.children)
	children[i] = h
	return aggState{count: s.count, children: children}
}

// aggregator owns counters and counts its own inc events.
type aggregator struct {
	*Core[counterEvent, aggState, Never]
}

func newAggregator(s *sched.Scheduler, children []*counter) *aggregator {
	handles := make([]Handle[counterEvent, int, int], len(children))
	for i, c := range children {
		handles[i] = c.LaunchAndHandle(s)
	}

	a := &aggregator{}
	a.Core = New[counterEvent, aggState, Never](aggState{children: handles}, a, s)
	return a
}

func (a *aggregator) React(s aggState) *Reaction[aggState, Never] {
	return a.Build(func(b *Builder[counterEvent, aggState, Never]) {
		for i, h := range s.children {
			OnChildUpdate(b, h, func(next Handle[counterEvent, int, int]) *Transition[aggState, Never] {
				return b.Enter(s.withChild(i, next))
			})
		}
		b.OnEvent(func(counterEvent) *Transition[aggState, Never] {
			return b.Enter(aggState{count: s.count + 1, children: s.children})
		})
	})
}

// panicSink returns a scheduler whose task panics are collected instead of
// crashing the test binary.
func panicSink(t *testing.T) (*sched.Scheduler, <-chan any) {
	t.Helper()
	panics := make(chan any, 8)
	return sched.New(t.Name(), sched.WithPanicHandler(func(r any) { panics <- r })), panics
}
