package demo

import (
	"time"

	"github.com/roach88/reactorcore/reactor"
	"github.com/roach88/reactorcore/sched"
)

// SlowLabel is the label a Racer settles on when its timer wins.
const SlowLabel = "slow"

// Racer waits for either an event label or its slow timer, then finishes
// with whichever came first.
type Racer struct {
	*reactor.Core[string, string, string]
	delay time.Duration
}

// NewRacer creates a racer whose timer fires after delay.
func NewRacer(s *sched.Scheduler, delay time.Duration, opts ...reactor.Option) *Racer {
	r := &Racer{delay: delay}
	r.Core = reactor.New[string, string, string]("", r, s, opts...)
	return r
}

// React implements reactor.Definition.
func (r *Racer) React(label string) *reactor.Reaction[string, string] {
	if label != "" {
		return reactor.Immediate(reactor.FinishWith[string](label))
	}

	return r.Build(func(b *reactor.Builder[string, string, string]) {
		b.After(r.delay, func() *reactor.Transition[string, string] {
			return b.Enter(SlowLabel)
		})
		b.OnEvent(func(e string) *reactor.Transition[string, string] {
			return b.Enter(e)
		})
	})
}
