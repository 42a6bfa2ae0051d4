// Package contract defines the fatal protocol violations of the reactor engine.
//
// A violation is never a runtime condition to recover from: it means a state
// machine definition, or a caller of the engine, broke one of the engine's
// invariants. Violations are raised with panic so they surface at the point of
// misuse, carrying a *Error that identifies the broken rule.
//
// Code running on a sched.Scheduler that was built without a panic handler
// terminates the process on violation. Tests install sched.WithPanicHandler and
// inspect the recovered value with CodeOf.
package contract

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code identifies the violated rule.
type Code string

const (
	// CodeDoubleLaunch indicates Launch was called on an already launched reactor.
	CodeDoubleLaunch Code = "DOUBLE_LAUNCH"

	// CodeLaunchFinished indicates Launch was called on a reactor that is already finished.
	CodeLaunchFinished Code = "LAUNCH_FINISHED"

	// CodeSecondRequest indicates a mailbox request was made while another is outstanding.
	CodeSecondRequest Code = "SECOND_REQUEST"

	// CodeDoubleFill indicates a single-assignment cell was written twice.
	CodeDoubleFill Code = "DOUBLE_FILL"

	// CodeDoubleSubscribe indicates a second callback was attached to a single-assignment cell.
	CodeDoubleSubscribe Code = "DOUBLE_SUBSCRIBE"

	// CodeUnhandledTransition indicates an arm declined to map the input it was given.
	CodeUnhandledTransition Code = "UNHANDLED_TRANSITION"

	// CodeConsumeUnfilled indicates a request was consumed before it was fulfilled.
	CodeConsumeUnfilled Code = "CONSUME_UNFILLED"

	// CodeDoubleConsume indicates a request was consumed twice.
	CodeDoubleConsume Code = "DOUBLE_CONSUME"

	// CodeConsumeCancelled indicates a request was consumed after it was cancelled.
	CodeConsumeCancelled Code = "CONSUME_CANCELLED"

	// CodeEmptyReaction indicates a reaction builder declared no arms.
	CodeEmptyReaction Code = "EMPTY_REACTION"
)

// Error describes a contract violation.
type Error struct {
	// Code identifies the violated rule.
	Code Code

	// Message is a human-readable description.
	Message string

	// Details carries diagnostic context (reactor id, mailbox, arm index).
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + e.Details[k]
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, ", "))
}

// New builds a violation. Details are given as alternating key/value pairs;
// a trailing key without a value is ignored.
func New(code Code, message string, kv ...string) *Error {
	e := &Error{Code: code, Message: message}
	if len(kv) >= 2 {
		e.Details = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			e.Details[kv[i]] = kv[i+1]
		}
	}
	return e
}

// Violate panics with a contract violation.
func Violate(code Code, message string, kv ...string) {
	panic(New(code, message, kv...))
}

// Is reports whether err is (or wraps) a violation with the given code.
func Is(err error, code Code) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// CodeOf extracts the violation code from a value recovered from a panic.
// Returns "" if the value is not a contract violation.
func CodeOf(recovered any) Code {
	err, ok := recovered.(error)
	if !ok {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
