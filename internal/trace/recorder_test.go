package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactorcore/internal/canonical"
	"github.com/roach88/reactorcore/reactor"
)

func TestRecorder_RecordAndFlush(t *testing.T) {
	rec := NewRecorder()

	type state struct {
		Count int `json:"count"`
	}
	rec.Record(reactor.Record{ReactorID: "c", Name: "counter", Seq: 1, Cause: reactor.CauseLaunch, Status: reactor.StatusRunning, State: state{}})
	rec.Record(reactor.Record{ReactorID: "c", Name: "counter", Seq: 2, Cause: reactor.CauseEvent, Status: reactor.StatusFinished, State: 1})

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.JSONEq(t, `{"count":0}`, string(entries[0].State))
	assert.Equal(t, canonical.HashWithDomain(canonical.DomainState, []byte(`{"count":0}`)), entries[0].StateHash)
	assert.Equal(t, "finished", entries[1].Status)

	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, rec.Flush(ctx, s))
	assert.Empty(t, rec.Entries(), "flush clears the buffer")

	timeline, err := s.Timeline(ctx, "c")
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, "counter", timeline[0].Name)
	assert.Equal(t, "launch", timeline[0].Cause)
	assert.Equal(t, "1", string(timeline[1].State))
}

func TestRecorder_UncanonicalState(t *testing.T) {
	rec := NewRecorder()
	rec.Record(reactor.Record{ReactorID: "x", Seq: 1, Cause: reactor.CauseLaunch, Status: reactor.StatusRunning, State: 0.5})

	assert.Empty(t, rec.Entries())
	assert.ErrorContains(t, rec.Err(), "floats are forbidden")
}
