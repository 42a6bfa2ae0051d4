package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactorcore/internal/trace"
)

func seedJournal(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "journal.db")
	st, err := trace.Open(db)
	require.NoError(t, err)
	defer st.Close()

	entries := []trace.Entry{
		{ReactorID: "root", Seq: 1, Cause: "launch", Status: "running", State: json.RawMessage(`{"count":0}`), StateHash: "h1"},
		{ReactorID: "child-1", Seq: 2, Cause: "launch", Status: "running", State: json.RawMessage(`{"count":0}`), StateHash: "h2"},
		{ReactorID: "root", Seq: 3, Cause: "child", Status: "running", State: json.RawMessage(`{"count":0}`), StateHash: "h3"},
	}
	require.NoError(t, st.WriteEntries(context.Background(), entries))
	return db
}

func TestTrace_AllReactors(t *testing.T) {
	db := seedJournal(t)

	out, err := execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Timeline of 2 reactor(s)")
	assert.Contains(t, out, "3 record(s), 0 finished, child=1, launch=2")
}

func TestTrace_OneReactorJSON(t *testing.T) {
	db := seedJournal(t)

	out, err := execute(t, "--format", "json", "trace", "--db", db, "--reactor", "root")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Timeline, 2)
	assert.Equal(t, int64(1), resp.Data.Timeline[0].Seq)
	assert.Equal(t, "child", resp.Data.Timeline[1].Cause)
	assert.Equal(t, 1, resp.Data.Stats.ByCause["launch"])
}

func TestTrace_UnknownReactor(t *testing.T) {
	db := seedJournal(t)

	out, err := execute(t, "trace", "--db", db, "--reactor", "ghost")
	require.NoError(t, err)
	assert.Contains(t, out, "No records found for reactor: ghost")
}

func TestTrace_MissingDatabase(t *testing.T) {
	_, err := execute(t, "trace", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrace_RequiresDB(t *testing.T) {
	_, err := execute(t, "trace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
