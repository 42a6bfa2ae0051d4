package reactor

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactorcore/contract"
	"github.com/roach88/reactorcore/sched"
)

func TestObserver_Update(t *testing.T) {
	o := NewObserver("initial", sched.New("observer"))
	assert.Equal(t, "initial", o.Value())

	var mu sync.Mutex
	var seen []string
	o.Subscribe(func(ws WorkflowState[string, Never]) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ws.MustRunning())
	})

	o.Update("a")
	o.UpdateSync("b")
	assert.Equal(t, "b", o.Value())
	assert.False(t, o.Current().IsFinished())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestObserver_FromChannel(t *testing.T) {
	ch := make(chan int)
	o := FromChannel(ch, 0, sched.New("observer"))

	ch <- 1
	ch <- 2
	close(ch)

	require.Eventually(t, func() bool { return o.Value() == 2 }, time.Second, time.Millisecond)
	assert.False(t, o.Current().IsFinished(), "observers never finish")
}

func TestObserver_AsChild(t *testing.T) {
	s := sched.New("parent")
	o := NewObserver(0, sched.New("observer"))
	h := o.Handle(s)

	o.UpdateSync(5)
	assert.Equal(t, 1, h.Pending())
	assert.Equal(t, 0, h.State().MustRunning())
}

func TestSubscription_FinishesWithLastValue(t *testing.T) {
	ch := make(chan int, 3)
	ch <- 1
	ch <- 2
	ch <- 3
	close(ch)

	sub := NewSubscription(ch, sched.New("subscription"))

	var mu sync.Mutex
	var running []int
	sub.Subscribe(func(ws WorkflowState[Latest[int], Latest[int]]) {
		if l, ok := ws.Running(); ok {
			mu.Lock()
			running = append(running, l.Value)
			mu.Unlock()
		}
	})
	sub.Launch()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	last, err := sub.Ready().Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, Latest[int]{Value: 3, Ok: true}, last)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, running)
}

func TestSubscription_EmptyProducer(t *testing.T) {
	ch := make(chan string)
	close(ch)

	sub := NewSubscription(ch, sched.New("subscription"))
	sub.Launch()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	last, err := sub.Ready().Wait(ctx)
	require.NoError(t, err)
	assert.False(t, last.Ok)
}

func TestSubscription_LaunchTwice(t *testing.T) {
	sub := NewSubscription(make(chan int), sched.New("subscription"))
	sub.Launch()

	defer func() {
		assert.Equal(t, contract.CodeDoubleLaunch, contract.CodeOf(recover()))
	}()
	sub.Launch()
}

func TestReadonly(t *testing.T) {
	r := NewReadonly(sched.New("readonly"), func(context.Context) string { return "done" })
	_, running := r.Current().Running()
	assert.True(t, running)

	got := make(chan string, 1)
	r.OnReady(func(v string) { got <- v })
	r.Launch()

	select {
	case v := <-got:
		assert.Equal(t, "done", v)
	case <-time.After(time.Second):
		t.Fatal("readonly did not finish")
	}
}

func TestReadonly_CancelledWhenCollected(t *testing.T) {
	s := sched.New("readonly-gc")
	cancelled := make(chan struct{})

	func() {
		r := NewReadonly(s, func(ctx context.Context) string {
			<-ctx.Done()
			close(cancelled)
			return ""
		})
		r.Launch()
	}()
	s.Flush()

	require.Eventually(t, func() bool {
		runtime.GC()
		select {
		case <-cancelled:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestObserver_FromChannelStopsWhenCollected(t *testing.T) {
	ch := make(chan int)

	gone := func() <-chan struct{} {
		o := FromChannel(ch, 0, sched.New("observer"))
		return o.core.lifetime.Done()
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		select {
		case <-gone:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond, "observer fed by a silent channel was not collected")

	time.Sleep(10 * time.Millisecond)
	assert.Never(t, func() bool {
		select {
		case ch <- 1:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond, "feeding goroutine still reading ch")
}

func TestSubscription_ReaderStopsWhenCollected(t *testing.T) {
	ch := make(chan int)

	gone := func() <-chan struct{} {
		sub := NewSubscription(ch, sched.New("subscription"))
		sub.Launch()
		return sub.core.lifetime.Done()
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		select {
		case <-gone:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond, "subscription on a silent producer was not collected")
}

func TestSingle_OnReadyBeforeAndAfter(t *testing.T) {
	s := NewSingle[int]()

	var calls []int
	s.OnReady(func(v int) { calls = append(calls, v) })
	s.Resolve(4)
	s.OnReady(func(v int) { calls = append(calls, v*10) })

	assert.Equal(t, []int{4, 40}, calls)

	defer func() {
		assert.Equal(t, contract.CodeDoubleFill, contract.CodeOf(recover()))
	}()
	s.Resolve(5)
}

func TestSingle_Wait(t *testing.T) {
	s := NewSingle[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go s.Resolve(1)
	v, err := s.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestMapSingle(t *testing.T) {
	s := NewSingle[int]()
	doubled := MapSingle(s, func(v int) (int, bool) { return v * 2, true })
	s.Resolve(21)

	v, ok := doubled.Value()
	require.True(t, ok)
	assert.Equal(t, 42, v)

	label := MapSingle(Resolved(3), func(v int) (string, bool) { return "n=3", v == 3 })
	l, ok := label.Value()
	require.True(t, ok)
	assert.Equal(t, "n=3", l)
}

func TestMapSingle_Declined(t *testing.T) {
	s := NewSingle[int]()
	MapSingle(s, func(int) (string, bool) { return "", false })

	defer func() {
		assert.Equal(t, contract.CodeUnhandledTransition, contract.CodeOf(recover()))
	}()
	s.Resolve(1)
}

func TestAsSingle(t *testing.T) {
	c := newCounter(sched.New("counter"))
	single := AsSingle[counterEvent, int, int](c)
	c.Launch()
	c.SendSync(inc)
	c.SendSync(stop)

	v, err := single.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// Already finished: resolved on construction.
	late := AsSingle[counterEvent, int, int](c)
	v, ok := late.Value()
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestWorkflowState(t *testing.T) {
	running := RunningState[string, int]("s")
	assert.Equal(t, StatusRunning, running.Status())
	assert.Equal(t, "s", running.Payload())
	_, ok := running.Finished()
	assert.False(t, ok)

	finished := FinishedState[string](7)
	assert.Equal(t, StatusFinished, finished.Status())
	assert.True(t, finished.IsFinished())
	assert.Equal(t, 7, finished.Payload())
	assert.Panics(t, func() { finished.MustRunning() })
}
