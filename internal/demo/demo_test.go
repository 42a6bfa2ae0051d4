package demo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/reactorcore/internal/trace"
	"github.com/roach88/reactorcore/reactor"
	"github.com/roach88/reactorcore/sched"
)

func TestCounter_SyncEvent(t *testing.T) {
	c := NewCounter(sched.New("counter"))
	c.Launch()
	assert.Equal(t, 0, c.Count())

	c.SendSync(Increment)
	assert.Equal(t, 1, c.Count())

	c.SendSync(Stop)
	v, ok := c.Current().Finished()
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestCounter_Trace(t *testing.T) {
	rec := trace.NewRecorder()
	c := NewCounter(sched.New("counter"), reactor.WithID("c"), reactor.WithTracer(rec))
	c.Launch()
	c.SendSync(Increment)
	c.SendSync(Increment)
	c.SendSync(Stop)

	require.NoError(t, rec.Err())
	entries := rec.Entries()
	require.Len(t, entries, 4)

	states := make([]string, len(entries))
	for i, e := range entries {
		states[i] = string(e.State)
	}
	assert.Equal(t, []string{`{"count":0}`, `{"count":1}`, `{"count":2}`, `2`}, states)
	assert.Equal(t, "finished", entries[3].Status)
}

func TestEvent_Valid(t *testing.T) {
	assert.True(t, Increment.Valid())
	assert.True(t, Stop.Valid())
	assert.False(t, Event("jump").Valid())
}

func TestAggregator_Composition(t *testing.T) {
	const children, increments = 10, 100

	counters := make([]*Counter, children)
	for i := range counters {
		counters[i] = NewCounter(sched.New("child"))
	}
	agg := NewAggregator(sched.New("aggregator"), counters)
	agg.Launch()

	var g errgroup.Group
	for _, c := range counters {
		g.Go(func() error {
			for i := 0; i < increments; i++ {
				c.SendSync(Increment)
			}
			agg.SendSync(Increment)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	agg.SendSync(Increment)

	assert.Equal(t, 1011, agg.Total())
}

func TestAggregator_MarshalJSON(t *testing.T) {
	counters := []*Counter{NewCounter(sched.New("a")), NewCounter(sched.New("b"))}
	agg := NewAggregator(sched.New("aggregator"), counters)
	agg.Launch()

	counters[1].SendSync(Increment)
	agg.SendSync(Increment)

	data, err := json.Marshal(agg.Current().MustRunning())
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":1,"children":[0,1],"total":2}`, string(data))
}

func TestAggregator_ChildFinish(t *testing.T) {
	child := NewCounter(sched.New("child"))
	agg := NewAggregator(sched.New("aggregator"), []*Counter{child})
	agg.Launch()

	child.SendSync(Increment)
	child.SendSync(Stop)
	agg.SendSync(Increment)

	assert.Equal(t, 2, agg.Total())
	assert.True(t, agg.Current().MustRunning().Children[0].State().IsFinished())
}

func TestRacer_FastEventWins(t *testing.T) {
	r := NewRacer(sched.New("racer"), time.Hour)
	r.Launch()
	r.SendSync("fast")

	v, err := r.Ready().Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fast", v)
}

func TestRacer_SlowTimerWins(t *testing.T) {
	r := NewRacer(sched.New("racer"), 5*time.Millisecond)
	r.Launch()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := r.Ready().Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, SlowLabel, v)

	// Events after the finish are discarded.
	r.SendSync("late")
	got, _ := r.Current().Finished()
	assert.Equal(t, SlowLabel, got)
}

func TestLatch_IdlesAtLimit(t *testing.T) {
	s := sched.New("latch")
	l := NewLatch(s, 2)
	l.Launch()

	l.SendSync(Increment)
	l.SendSync(Increment)
	l.Send(Increment)
	s.Flush()

	assert.Equal(t, 2, l.Current().MustRunning().Count)
	assert.False(t, l.Current().IsFinished())
}
