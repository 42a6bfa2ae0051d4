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

func TestAggregate_DefaultComposition(t *testing.T) {
	out, err := execute(t, "aggregate")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ total 1011 (expected 1011) from 10 children x 100 increments")
}

func TestAggregate_JSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "aggregate", "--children", "3", "--count", "5")
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   AggregateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 19, resp.Data.Expected)
	assert.Equal(t, 19, resp.Data.Total)
}

func TestAggregate_Journal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "agg.db")

	_, err := execute(t, "aggregate", "--children", "2", "--count", "3", "--db", db)
	require.NoError(t, err)

	st, err := trace.Open(db)
	require.NoError(t, err)
	defer st.Close()

	reactors, err := st.Reactors(context.Background())
	require.NoError(t, err)
	assert.Len(t, reactors, 3)
}

func TestAggregate_BadFlags(t *testing.T) {
	_, err := execute(t, "aggregate", "--children", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
