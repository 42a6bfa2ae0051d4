package harness

import (
	"encoding/json"

	"github.com/roach88/reactorcore/internal/trace"
)

// TraceRecord is one published state, as read back from the journal.
type TraceRecord struct {
	Reactor   string          `json:"reactor"`
	Seq       int64           `json:"seq"`
	Cause     string          `json:"cause"`
	Status    string          `json:"status"`
	State     json.RawMessage `json:"state"`
	StateHash string          `json:"state_hash"`
}

// FinalState is a reactor's state when the scenario ended.
type FinalState struct {
	Status string          `json:"status"`
	State  json.RawMessage `json:"state"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// RunID identifies the run in the journal's runs table.
	RunID string `json:"run_id"`

	// Pass is true when every step ran and every assertion held.
	Pass bool `json:"pass"`

	// Trace holds every record of every reactor, ordered by seq.
	Trace []TraceRecord `json:"trace"`

	// Errors contains step failures, contract violations and assertion
	// failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final maps reactor targets ("root", "child-1", ...) to their final state.
	Final map[string]FinalState `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceRecord{},
		Errors: []string{},
		Final:  make(map[string]FinalState),
	}
}

// AddError adds an error message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEntry appends a journal entry to the trace.
func (r *Result) AddEntry(e trace.Entry) {
	r.Trace = append(r.Trace, TraceRecord{
		Reactor:   e.ReactorID,
		Seq:       e.Seq,
		Cause:     e.Cause,
		Status:    e.Status,
		State:     e.State,
		StateHash: e.StateHash,
	})
}

// For returns the target's records in seq order.
func (r *Result) For(target string) []TraceRecord {
	var out []TraceRecord
	for _, rec := range r.Trace {
		if rec.Reactor == target {
			out = append(out, rec)
		}
	}
	return out
}
