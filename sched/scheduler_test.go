package sched

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsTasksInOrder(t *testing.T) {
	s := New("test")

	var got []int
	for i := 1; i <= 100; i++ {
		i := i
		require.True(t, s.Schedule(func() { got = append(got, i) }))
	}
	s.Flush()

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i+1, v)
	}
}

func TestScheduler_TasksNeverOverlap(t *testing.T) {
	s := New("test")

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup

	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Schedule(func() {
					n := active.Add(1)
					if n > maxActive.Load() {
						maxActive.Store(n)
					}
					time.Sleep(10 * time.Microsecond)
					active.Add(-1)
				})
			}
		}()
	}
	wg.Wait()
	s.Flush()

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestScheduler_ScheduleFromTask(t *testing.T) {
	s := New("test")

	done := make(chan string, 2)
	s.Schedule(func() {
		s.Schedule(func() { done <- "inner" })
		done <- "outer"
	})

	select {
	case v := <-done:
		assert.Equal(t, "outer", v)
	case <-time.After(time.Second):
		t.Fatal("outer task did not run")
	}
	select {
	case v := <-done:
		assert.Equal(t, "inner", v)
	case <-time.After(time.Second):
		t.Fatal("inner task did not run")
	}
}

func TestScheduler_Close(t *testing.T) {
	s := New("test")

	var ran atomic.Bool
	require.True(t, s.Schedule(func() { ran.Store(true) }))
	s.Close()

	assert.False(t, s.Schedule(func() {}))
	assert.False(t, s.Do(func() {}))

	// Tasks queued before Close still run.
	assert.Eventually(t, ran.Load, time.Second, time.Millisecond)
}

func TestScheduler_PanicHandler(t *testing.T) {
	recovered := make(chan any, 1)
	s := New("test", WithPanicHandler(func(r any) { recovered <- r }))

	s.Schedule(func() { panic("boom") })

	select {
	case r := <-recovered:
		assert.Equal(t, "boom", r)
	case <-time.After(time.Second):
		t.Fatal("panic was not recovered")
	}

	// The scheduler keeps working after a recovered panic.
	ok := false
	require.True(t, s.Do(func() { ok = true }))
	assert.True(t, ok)
}

func TestScheduler_IdleWhenEmpty(t *testing.T) {
	s := New("test")
	s.Flush()

	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return !s.running
	}, time.Second, time.Millisecond, "drain goroutine should exit when idle")
}
