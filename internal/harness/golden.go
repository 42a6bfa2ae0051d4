package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/reactorcore/internal/canonical"
)

// TraceSnapshot is the golden form of a run: scenario name plus the trace,
// without state hashes or the run ID.
type TraceSnapshot struct {
	ScenarioName string        `json:"scenario_name"`
	Trace        []TraceRecord `json:"trace"`
}

func (s *TraceSnapshot) plain() map[string]any {
	records := make([]any, 0, len(s.Trace))
	for _, rec := range s.Trace {
		records = append(records, map[string]any{
			"reactor": rec.Reactor,
			"seq":     rec.Seq,
			"cause":   rec.Cause,
			"status":  rec.Status,
			"state":   json.RawMessage(rec.State),
		})
	}
	return map[string]any{"scenario_name": s.ScenarioName, "trace": records}
}

// Snapshot renders a result's trace as canonical JSON.
func Snapshot(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: name, Trace: result.Trace}
	return canonical.Marshal(snapshot.plain())
}

// RunWithGolden runs scenario and checks its snapshot against
// testdata/golden/<name>.golden. Pass -update to rewrite the file.
//
// Only scenarios whose record order does not depend on goroutine scheduling
// belong in golden files: a single reactor, or a tree driven one send at a time.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden checks result's snapshot against the golden file for name.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	).Assert(t, name, snapshot)
	return nil
}
