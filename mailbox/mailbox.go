package mailbox

import (
	"sync"

	"github.com/roach88/reactorcore/contract"
	"github.com/roach88/reactorcore/internal/cell"
	"github.com/roach88/reactorcore/sched"
)

// Mailbox is an unbounded FIFO of values with deferred, single-consumer delivery.
type Mailbox[T any] struct {
	sched   *sched.Scheduler
	discard func(T)

	mu      sync.Mutex
	storage []T
	pending *Request[T]
	closed  bool
}

// Option configures a Mailbox.
type Option[T any] func(*Mailbox[T])

// WithDiscard registers fn to receive every value the mailbox drops: values
// still stored when Close is called and values enqueued afterwards.
// fn runs on the goroutine that called Close or Enqueue.
func WithDiscard[T any](fn func(T)) Option[T] {
	return func(m *Mailbox[T]) {
		m.discard = fn
	}
}

// New creates an empty mailbox whose deliveries run on s.
func New[T any](s *sched.Scheduler, opts ...Option[T]) *Mailbox[T] {
	m := &Mailbox[T]{
		sched:   s,
		storage: make([]T, 0, 8),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Scheduler returns the scheduler deliveries run on.
func (m *Mailbox[T]) Scheduler() *sched.Scheduler {
	return m.sched
}

// Enqueue appends v to the tail. If a request is waiting for a value, its
// delivery is scheduled.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the mailbox is closed; v is handed to the discard hook.
func (m *Mailbox[T]) Enqueue(v T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		if m.discard != nil {
			m.discard(v)
		}
		return false
	}

	m.storage = append(m.storage, v)
	r, head := m.fulfillLocked()
	m.mu.Unlock()

	if r != nil {
		m.sched.Schedule(func() { r.deliver(head) })
	}
	return true
}

// Request opens the mailbox's single outstanding request.
// If a value is stored, the request is fulfilled with the head before Request returns.
//
// Panics with SECOND_REQUEST if a request is already outstanding.
func (m *Mailbox[T]) Request() *Request[T] {
	m.mu.Lock()
	if m.pending != nil {
		m.mu.Unlock()
		contract.Violate(contract.CodeSecondRequest, "mailbox request made while another is outstanding")
	}

	r := &Request[T]{mailbox: m, value: cell.New[T]()}
	m.pending = r
	filled, head := m.fulfillLocked()
	m.mu.Unlock()

	if filled != nil {
		filled.value.Set(head)
	}
	return r
}

// Len returns the number of stored values.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.storage)
}

// Close rejects further values and drops the stored ones through the discard hook.
// An outstanding unfulfilled request is never fulfilled.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	dropped := m.storage
	m.storage = nil
	m.mu.Unlock()

	if m.discard != nil {
		for _, v := range dropped {
			m.discard(v)
		}
	}
}

// fulfillLocked marks the pending request filled when a head is available and
// returns it with the head value. Caller must hold m.mu.
func (m *Mailbox[T]) fulfillLocked() (*Request[T], T) {
	var zero T
	r := m.pending
	if r == nil || r.filled || len(m.storage) == 0 {
		return nil, zero
	}
	r.filled = true
	return r, m.storage[0]
}

// consume removes the head on behalf of r.
func (m *Mailbox[T]) consume(r *Request[T]) {
	_, delivered := r.value.Get()

	m.mu.Lock()
	code, msg := contract.Code(""), ""
	switch {
	case r.cancelled:
		code, msg = contract.CodeConsumeCancelled, "request consumed after cancel"
	case r.consumed:
		code, msg = contract.CodeDoubleConsume, "request consumed twice"
	case !delivered:
		code, msg = contract.CodeConsumeUnfilled, "request consumed before it was fulfilled"
	}
	if code != "" {
		m.mu.Unlock()
		contract.Violate(code, msg)
	}

	r.consumed = true
	if m.pending == r {
		m.pending = nil
	}
	// Close may already have dropped the storage.
	if len(m.storage) > 0 {
		var zero T
		m.storage[0] = zero
		m.storage = m.storage[1:]
	}
	m.mu.Unlock()
}

// cancel withdraws r without touching the head.
func (m *Mailbox[T]) cancel(r *Request[T]) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.consumed || r.cancelled {
		return
	}
	r.cancelled = true
	if m.pending == r {
		m.pending = nil
	}
}

// live reports whether r is still the outstanding request.
func (m *Mailbox[T]) live(r *Request[T]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending == r && !r.cancelled
}
