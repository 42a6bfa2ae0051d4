package sched

import (
	"log/slog"
	"sync"
)

// Task is a unit of work run on a Scheduler.
type Task func()

// Scheduler is a serialized execution context with an unbounded FIFO task queue.
//
// The queue is unbounded: Schedule never blocks and never applies back-pressure.
type Scheduler struct {
	name    string
	logger  *slog.Logger
	onPanic func(recovered any)

	mu      sync.Mutex
	tasks   []Task
	running bool // a drain goroutine is active
	closed  bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for scheduler diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithPanicHandler recovers panics raised by tasks and hands them to fn.
//
// Without a handler a panicking task terminates the process, which is the
// intended behavior for contract violations in production. Tests install a
// handler to observe violations raised on the scheduler's goroutine.
func WithPanicHandler(fn func(recovered any)) Option {
	return func(s *Scheduler) {
		s.onPanic = fn
	}
}

// New creates a Scheduler. The name only appears in logs.
func New(name string, opts ...Option) *Scheduler {
	s := &Scheduler{
		name:   name,
		logger: slog.Default(),
		tasks:  make([]Task, 0, 16),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the scheduler's name.
func (s *Scheduler) Name() string {
	return s.name
}

// Schedule appends a task to the back of the queue.
// Thread-safe: may be called from any goroutine, including from a task.
//
// Returns false if the scheduler has been closed; the task is dropped.
func (s *Scheduler) Schedule(task Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	s.tasks = append(s.tasks, task)

	if !s.running {
		s.running = true
		go s.drain()
	}

	return true
}

// Do schedules fn and blocks until it has run.
// Returns false without running fn if the scheduler is closed.
//
// Must not be called from a task on the same scheduler.
func (s *Scheduler) Do(fn func()) bool {
	done := make(chan struct{})
	ok := s.Schedule(func() {
		defer close(done)
		fn()
	})
	if !ok {
		return false
	}
	<-done
	return true
}

// Flush blocks until every task scheduled before the call has run.
func (s *Scheduler) Flush() {
	s.Do(func() {})
}

// Len returns the number of tasks waiting to run.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Close rejects further tasks. Tasks already queued still run.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// drain runs queued tasks until the queue is empty, then exits.
// At most one drain goroutine is active per scheduler.
func (s *Scheduler) drain() {
	for {
		s.mu.Lock()
		if len(s.tasks) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}

		task := s.tasks[0]

		// Nil out the slot so the closure (and whatever it captured) can be collected.
		s.tasks[0] = nil
		if len(s.tasks) == 1 {
			s.tasks = s.tasks[:0]
		} else {
			s.tasks = s.tasks[1:]
		}
		s.mu.Unlock()

		s.run(task)
	}
}

func (s *Scheduler) run(task Task) {
	if s.onPanic != nil {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("scheduler task panicked",
					"scheduler", s.name,
					"panic", r,
				)
				s.onPanic(r)
			}
		}()
	}

	task()
}
