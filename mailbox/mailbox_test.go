package mailbox

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactorcore/contract"
	"github.com/roach88/reactorcore/sched"
)

// next requests a value and waits for its delivery.
func next[T any](t *testing.T, m *Mailbox[T]) *Request[T] {
	t.Helper()

	r := m.Request()
	got := make(chan struct{})
	r.OnValue(func(T) { close(got) })

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("request was not fulfilled")
	}
	return r
}

func requireViolation(t *testing.T, code contract.Code, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		require.Equal(t, code, contract.CodeOf(recover()))
	}()
	fn()
}

func TestMailbox_FIFO(t *testing.T) {
	m := New[int](sched.New("test"))
	for i := 1; i <= 50; i++ {
		require.True(t, m.Enqueue(i))
	}

	for i := 1; i <= 50; i++ {
		r := next(t, m)
		v, ok := r.Value()
		require.True(t, ok)
		assert.Equal(t, i, v)
		r.Consume()
	}
	assert.Equal(t, 0, m.Len())
}

func TestMailbox_DeferredFulfillment(t *testing.T) {
	s := sched.New("test")
	m := New[string](s)

	r := m.Request()
	_, ok := r.Value()
	assert.False(t, ok, "no value yet")

	got := make(chan string, 1)
	r.OnValue(func(v string) { got <- v })

	m.Enqueue("hello")

	select {
	case v := <-got:
		assert.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("request was not fulfilled")
	}
	assert.Equal(t, 1, m.Len(), "fulfilment does not remove the value")
}

func TestMailbox_ImmediateFulfillment(t *testing.T) {
	m := New[int](sched.New("test"))
	m.Enqueue(9)

	r := m.Request()
	v, ok := r.Value()
	require.True(t, ok)
	assert.Equal(t, 9, v)
}

func TestMailbox_CancelKeepsValue(t *testing.T) {
	m := New[int](sched.New("test"))
	m.Enqueue(1)
	m.Enqueue(2)

	first := next(t, m)
	first.Cancel()
	first.Cancel() // idempotent

	again := next(t, m)
	v, _ := again.Value()
	assert.Equal(t, 1, v, "cancelled value is delivered to the next requester")
	again.Consume()

	third := next(t, m)
	v, _ = third.Value()
	assert.Equal(t, 2, v)
}

func TestMailbox_CancelBeforeDelivery(t *testing.T) {
	s := sched.New("test")
	m := New[int](s)

	r := m.Request()
	r.Cancel()
	m.Enqueue(5)
	s.Flush()

	_, ok := r.Value()
	assert.False(t, ok, "cancelled request is never fulfilled")
	assert.Equal(t, 1, m.Len())

	r2 := m.Request()
	v, ok := r2.Value()
	require.True(t, ok)
	assert.Equal(t, 5, v)
}

func TestMailbox_SecondRequest(t *testing.T) {
	m := New[int](sched.New("test"))
	m.Request()

	requireViolation(t, contract.CodeSecondRequest, func() { m.Request() })
}

func TestMailbox_ConsumeViolations(t *testing.T) {
	t.Run("unfilled", func(t *testing.T) {
		m := New[int](sched.New("test"))
		r := m.Request()
		requireViolation(t, contract.CodeConsumeUnfilled, r.Consume)
	})

	t.Run("twice", func(t *testing.T) {
		m := New[int](sched.New("test"))
		m.Enqueue(1)
		r := m.Request()
		r.Consume()
		requireViolation(t, contract.CodeDoubleConsume, r.Consume)
	})

	t.Run("after cancel", func(t *testing.T) {
		m := New[int](sched.New("test"))
		m.Enqueue(1)
		r := m.Request()
		r.Cancel()
		requireViolation(t, contract.CodeConsumeCancelled, r.Consume)
	})
}

func TestMailbox_NoDoubleDelivery(t *testing.T) {
	m := New[int](sched.New("test"))

	const producers, perProducer = 4, 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				m.Enqueue(p*perProducer + i)
			}
		}(p)
	}

	seen := make(map[int]bool)
	last := make(map[int]int)
	for i := 0; i < producers*perProducer; i++ {
		r := next(t, m)
		v, _ := r.Value()
		require.False(t, seen[v], "value %d delivered twice", v)
		seen[v] = true

		// Per-producer order is preserved.
		p := v / perProducer
		if prev, ok := last[p]; ok {
			require.Greater(t, v, prev)
		}
		last[p] = v
		r.Consume()
	}
	wg.Wait()
	assert.Len(t, seen, producers*perProducer)
}

func TestMailbox_Close(t *testing.T) {
	var dropped []int
	m := New(sched.New("test"), WithDiscard(func(v int) { dropped = append(dropped, v) }))

	m.Enqueue(1)
	m.Enqueue(2)
	m.Close()
	assert.False(t, m.Enqueue(3))
	m.Close()

	assert.Equal(t, []int{1, 2, 3}, dropped)
	assert.Equal(t, 0, m.Len())
}
