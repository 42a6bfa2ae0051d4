package harness

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(causes ...string) []TraceRecord {
	out := make([]TraceRecord, len(causes))
	for i, c := range causes {
		out[i] = TraceRecord{
			Reactor: "root",
			Seq:     int64(i + 1),
			Cause:   c,
			Status:  "running",
			State:   json.RawMessage(`{"count":` + string(rune('0'+i)) + `,"tag":"x"}`),
		}
	}
	return out
}

func TestAssertTraceOrder(t *testing.T) {
	recs := records("launch", "event", "child")

	assert.NoError(t, assertTraceOrder(recs, Assertion{Target: "root", Causes: []string{"launch", "event", "child"}}))

	err := assertTraceOrder(recs, Assertion{Target: "root", Causes: []string{"launch", "child"}})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceOrder, ae.Type)
	assert.Contains(t, err.Error(), "Trace of root")
}

func TestAssertTraceCount(t *testing.T) {
	recs := records("launch", "event", "event")

	assert.NoError(t, assertTraceCount(recs, Assertion{Count: 3}))
	assert.NoError(t, assertTraceCount(recs, Assertion{Cause: "event", Count: 2}))
	assert.NoError(t, assertTraceCount(recs, Assertion{Cause: "async", Count: 0}))

	err := assertTraceCount(recs, Assertion{Target: "root", Cause: "event", Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 event records")
}

func TestAssertTraceContains(t *testing.T) {
	recs := records("launch", "event")

	assert.NoError(t, assertTraceContains(recs, Assertion{State: map[string]any{"count": 1}}))
	assert.NoError(t, assertTraceContains(recs, Assertion{Cause: "launch", State: map[string]any{"count": 0}}))

	err := assertTraceContains(recs, Assertion{Target: "root", Cause: "launch", State: map[string]any{"count": 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in trace")
}

func TestStateMatches(t *testing.T) {
	tests := []struct {
		name     string
		actual   string
		expected any
		want     bool
	}{
		{"scalar int", `2`, 2, true},
		{"scalar int64", `2`, int64(2), true},
		{"scalar mismatch", `2`, 3, false},
		{"string", `"slow"`, "slow", true},
		{"object subset", `{"count":1,"total":4}`, map[string]any{"total": 4}, true},
		{"object missing key", `{"count":1}`, map[string]any{"total": 1}, false},
		{"nested array exact", `{"children":[1,2]}`, map[string]any{"children": []any{1, 2}}, true},
		{"array length differs", `{"children":[1,2]}`, map[string]any{"children": []any{1}}, false},
		{"type mismatch", `{"count":1}`, "count", false},
		{"bool", `true`, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stateMatches(json.RawMessage(tt.actual), tt.expected)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateAssertions_UnknownTarget(t *testing.T) {
	result := NewResult()
	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertFinalStatus, Target: "child-9", Status: "running"},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `no reactor "child-9"`)
}
