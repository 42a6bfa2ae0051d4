package mailbox

import "github.com/roach88/reactorcore/internal/cell"

// Request is the token for a mailbox's single outstanding request.
//
// Exactly one of Consume or Cancel settles a request. Cancel is idempotent and
// a no-op after Consume.
type Request[T any] struct {
	mailbox *Mailbox[T]
	value   *cell.Cell[T]

	// Guarded by mailbox.mu.
	filled    bool
	consumed  bool
	cancelled bool
}

// OnValue attaches the delivery callback. It runs on the mailbox's scheduler,
// or on the caller's goroutine if the request is already fulfilled.
// Panics with DOUBLE_SUBSCRIBE when called twice.
func (r *Request[T]) OnValue(fn func(T)) {
	r.value.OnValue(fn)
}

// Value returns the delivered value, if any.
func (r *Request[T]) Value() (T, bool) {
	return r.value.Get()
}

// Consume removes the delivered value from the mailbox and closes the request.
//
// Panics with CONSUME_UNFILLED, DOUBLE_CONSUME or CONSUME_CANCELLED when the
// request is not in the fulfilled state.
func (r *Request[T]) Consume() {
	r.mailbox.consume(r)
}

// Cancel closes the request without removing anything. A value delivered to a
// cancelled request is seen again by the next request.
func (r *Request[T]) Cancel() {
	r.mailbox.cancel(r)
}

func (r *Request[T]) deliver(v T) {
	// Cancelled while the delivery was queued; the value stays at the head.
	if !r.mailbox.live(r) {
		return
	}
	r.value.Set(v)
}
