package trace

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/reactorcore/internal/canonical"
	"github.com/roach88/reactorcore/reactor"
)

// Recorder buffers published states as journal entries.
//
// Record is called on reactor schedulers and never blocks on I/O; Flush does
// the writing. One Recorder may be shared by any number of reactors.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

var _ reactor.Tracer = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record converts r to an Entry. A state that has no canonical form is
// skipped and reported by Err.
func (rec *Recorder) Record(r reactor.Record) {
	state, err := canonical.Marshal(r.State)
	if err == nil {
		hash := canonical.HashWithDomain(canonical.DomainState, state)

		rec.mu.Lock()
		rec.entries = append(rec.entries, Entry{
			ReactorID: r.ReactorID,
			Name:      r.Name,
			Seq:       r.Seq,
			Cause:     string(r.Cause),
			Status:    string(r.Status),
			State:     state,
			StateHash: hash,
		})
		rec.mu.Unlock()
		return
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.err == nil {
		rec.err = fmt.Errorf("record %s seq %d: %w", r.ReactorID, r.Seq, err)
	}
}

// Entries returns a copy of the buffered entries in recording order.
func (rec *Recorder) Entries() []Entry {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	out := make([]Entry, len(rec.entries))
	copy(out, rec.entries)
	return out
}

// Err returns the first recording error, if any.
func (rec *Recorder) Err() error {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.err
}

// Flush writes the buffered entries to s and clears the buffer.
// On error the buffer is kept so the flush can be retried.
func (rec *Recorder) Flush(ctx context.Context, s *Store) error {
	rec.mu.Lock()
	pending := rec.entries
	rec.mu.Unlock()

	if err := s.WriteEntries(ctx, pending); err != nil {
		return err
	}

	rec.mu.Lock()
	rec.entries = rec.entries[len(pending):]
	rec.mu.Unlock()
	return nil
}
