// Package mailbox implements the single-consumer-at-a-time value queue that
// underlies both reactor events and child-state observation.
//
// A Mailbox keeps an ordered storage of values and at most one outstanding
// Request. A request is fulfilled with the current head as soon as both the
// request and a value exist; fulfilment does not remove the value. The holder
// of the request either consumes it (the head is removed) or cancels it (the
// head stays for the next request).
//
// Ordering:
// Enqueue appends under the mailbox lock on the caller's goroutine, so values
// from concurrent producers are stored in the order their Enqueue calls were
// admitted. Delivery to a request that was waiting for a value is always
// scheduled on the mailbox's Scheduler; a request made while a value is
// already present is fulfilled before Request returns.
//
// Violations (a second outstanding request, consuming an unfulfilled,
// cancelled or already consumed request) panic with a *contract.Error.
package mailbox
