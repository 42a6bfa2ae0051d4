package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Target   string        // Reactor the assertion is about
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []TraceRecord // Target's records for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s on %s\n", e.Type, e.Target)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace of %s:\n", e.Target)
		for _, rec := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", rec.Seq, rec.Cause, rec.Status, rec.State)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against the result and returns
// one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertFinalStatus:
			err = assertFinalStatus(result, a)
		case AssertFinalState:
			err = assertFinalState(result, a)
		case AssertTraceCount:
			err = assertTraceCount(result.For(a.Target), a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.For(a.Target), a)
		case AssertTraceContains:
			err = assertTraceContains(result.For(a.Target), a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func assertFinalStatus(result *Result, a Assertion) error {
	final, ok := result.Final[a.Target]
	if !ok {
		return fmt.Errorf("no reactor %q", a.Target)
	}
	if final.Status != a.Status {
		return &AssertionError{
			Type:     AssertFinalStatus,
			Target:   a.Target,
			Expected: a.Status,
			Actual:   final.Status,
			Trace:    result.For(a.Target),
		}
	}
	return nil
}

func assertFinalState(result *Result, a Assertion) error {
	final, ok := result.Final[a.Target]
	if !ok {
		return fmt.Errorf("no reactor %q", a.Target)
	}

	match, err := stateMatches(final.State, a.Expect)
	if err != nil {
		return err
	}
	if !match {
		return &AssertionError{
			Type:     AssertFinalState,
			Target:   a.Target,
			Expected: describe(a.Expect),
			Actual:   string(final.State),
			Trace:    result.For(a.Target),
		}
	}
	return nil
}

// assertTraceCount checks the number of records, optionally of one cause.
func assertTraceCount(records []TraceRecord, a Assertion) error {
	count := 0
	for _, rec := range records {
		if a.Cause == "" || rec.Cause == a.Cause {
			count++
		}
	}

	if count != a.Count {
		what := "records"
		if a.Cause != "" {
			what = a.Cause + " records"
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Target:   a.Target,
			Expected: fmt.Sprintf("%d %s", a.Count, what),
			Actual:   fmt.Sprintf("%d %s", count, what),
			Trace:    records,
		}
	}
	return nil
}

// assertTraceOrder checks the exact cause sequence of the target's records.
func assertTraceOrder(records []TraceRecord, a Assertion) error {
	causes := make([]string, len(records))
	for i, rec := range records {
		causes[i] = rec.Cause
	}

	if strings.Join(causes, ",") != strings.Join(a.Causes, ",") {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Target:   a.Target,
			Expected: fmt.Sprintf("causes %v", a.Causes),
			Actual:   fmt.Sprintf("causes %v", causes),
			Trace:    records,
		}
	}
	return nil
}

// assertTraceContains checks that some record, optionally of one cause,
// carries the expected state (subset match for objects).
func assertTraceContains(records []TraceRecord, a Assertion) error {
	for _, rec := range records {
		if a.Cause != "" && rec.Cause != a.Cause {
			continue
		}
		match, err := stateMatches(rec.State, a.State)
		if err != nil {
			return err
		}
		if match {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Target:   a.Target,
		Expected: fmt.Sprintf("a %s record with state %s", orAny(a.Cause), describe(a.State)),
		Actual:   "not found in trace",
		Trace:    records,
	}
}

// stateMatches compares a recorded JSON state with an expected value decoded
// from YAML or CUE. Both sides go through encoding/json so numbers compare by
// their literal text regardless of the decoder that produced them.
func stateMatches(actual json.RawMessage, expected any) (bool, error) {
	want, err := normalize(expected)
	if err != nil {
		return false, fmt.Errorf("expected value: %w", err)
	}
	got, err := decode(actual)
	if err != nil {
		return false, fmt.Errorf("recorded state: %w", err)
	}
	return subset(want, got), nil
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// subset reports whether got matches want: objects match when every key of
// want matches in got; arrays match element-wise with equal length.
func subset(want, got any) bool {
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok {
			return false
		}
		for k, wv := range w {
			gv, exists := g[k]
			if !exists || !subset(wv, gv) {
				return false
			}
		}
		return true
	case []any:
		g, ok := got.([]any)
		if !ok || len(g) != len(w) {
			return false
		}
		for i := range w {
			if !subset(w[i], g[i]) {
				return false
			}
		}
		return true
	case json.Number:
		g, ok := got.(json.Number)
		return ok && w.String() == g.String()
	default:
		return want == got
	}
}

func describe(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func orAny(cause string) string {
	if cause == "" {
		return "any"
	}
	return cause
}
