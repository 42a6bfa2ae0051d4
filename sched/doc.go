// Package sched provides the serialized execution context that every reactor,
// mailbox and handle is bound to.
//
// A Scheduler runs tasks one at a time, in the order they were scheduled.
// Everything that mutates a reactor (mailbox bookkeeping, race resolution,
// state publication) is scheduled on that reactor's Scheduler, which removes
// intra-instance races by construction.
//
// ARCHITECTURE:
//
// Lazy single worker:
// A Scheduler owns no goroutine while idle. Schedule starts a drain goroutine
// when the first task arrives, and the goroutine exits as soon as the queue is
// empty. A reactor that is waiting for an event therefore holds no background
// work, and dropping every reference to it lets it be collected.
//
// Thread-safety model:
//   - Schedule(), Do(), Flush(), Len(), Close(): safe from any goroutine
//   - Tasks: never run concurrently with each other on the same Scheduler
//
// Blocking helpers (Do, Flush) must not be called from a task running on the
// same Scheduler: the caller would wait for a task that can only start after
// the caller returns.
package sched
