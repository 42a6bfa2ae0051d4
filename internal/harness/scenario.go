package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/reactorcore/internal/demo"
	"github.com/roach88/reactorcore/reactor"
)

//go:embed schema.cue
var schemaCUE []byte

// Scenario drives one reactor tree through a sequence of steps and checks
// the recorded trace and final states.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Reactor selects the root reactor kind: counter, aggregator, racer or latch.
	Reactor string `yaml:"reactor" json:"reactor"`

	// Children is the number of Counter children of an aggregator.
	Children int `yaml:"children,omitempty" json:"children,omitempty"`

	// SlowDelay is the racer's timer as a Go duration ("1h", "5ms").
	SlowDelay string `yaml:"slow_delay,omitempty" json:"slow_delay,omitempty"`

	// Limit is the latch's holding count.
	Limit int `yaml:"limit,omitempty" json:"limit,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps" json:"steps"`

	// Assertions validate the trace and the final states.
	Assertions []Assertion `yaml:"assertions" json:"assertions"`
}

// Step sends an event or waits for a reactor to finish.
type Step struct {
	// Target is "root", "child-N", or "children" for every child at once,
	// each child fed from its own goroutine.
	Target string `yaml:"target,omitempty" json:"target,omitempty"`

	// Event is sent to the target.
	Event string `yaml:"event,omitempty" json:"event,omitempty"`

	// Async sends without waiting for the event to be applied.
	Async bool `yaml:"async,omitempty" json:"async,omitempty"`

	// Repeat sends the event this many times. Default 1.
	Repeat int `yaml:"repeat,omitempty" json:"repeat,omitempty"`

	// AwaitFinished names a reactor whose terminal value to wait for.
	AwaitFinished string `yaml:"await_finished,omitempty" json:"await_finished,omitempty"`

	// Timeout bounds each synchronous send or the wait. Default 5s.
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Assertion validates the trace or a final state of one reactor.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type" json:"type"`

	// Target names the reactor the assertion is about.
	Target string `yaml:"target" json:"target"`

	// Status is the expected final status (final_status).
	Status string `yaml:"status,omitempty" json:"status,omitempty"`

	// Expect is the expected final state (final_state), compared as a subset
	// for objects and exactly otherwise.
	Expect any `yaml:"expect,omitempty" json:"expect,omitempty"`

	// Cause filters records (trace_count, trace_contains).
	Cause string `yaml:"cause,omitempty" json:"cause,omitempty"`

	// Count is the expected number of records (trace_count).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Causes is the exact cause sequence of the target's records (trace_order).
	Causes []string `yaml:"causes,omitempty" json:"causes,omitempty"`

	// State is a state one of the records must carry (trace_contains).
	State any `yaml:"state,omitempty" json:"state,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalStatus   = "final_status"
	AssertFinalState    = "final_state"
	AssertTraceCount    = "trace_count"
	AssertTraceOrder    = "trace_order"
	AssertTraceContains = "trace_contains"
)

// Reactor kinds.
const (
	KindCounter    = "counter"
	KindAggregator = "aggregator"
	KindRacer      = "racer"
	KindLatch      = "latch"
)

// Targets.
const (
	TargetRoot     = "root"
	TargetChildren = "children"
)

const defaultTimeout = 5 * time.Second

var childTarget = regexp.MustCompile(`^child-([1-9][0-9]*)$`)

// LoadScenario reads a scenario from a .yaml/.yml or .cue file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		scenario, err = parseCUE(path, data)
	case ".yaml", ".yml":
		scenario, err = parseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported scenario file type %q (want .yaml, .yml or .cue)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

func parseYAML(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// parseCUE unifies the file with the embedded #Scenario schema, so CUE
// scenarios get closed-struct and type checking before decoding.
func parseCUE(path string, data []byte) (*Scenario, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile scenario schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %s", cueerrors.Details(err, nil))
	}

	unified := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("scenario does not match schema: %s", cueerrors.Details(err, nil))
	}

	var scenario Scenario
	if err := unified.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
// The CUE schema covers most of this for .cue files; YAML has no schema.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Reactor {
	case KindCounter, KindLatch:
	case KindAggregator:
		if s.Children < 1 {
			return fmt.Errorf("aggregator needs at least one child")
		}
	case KindRacer:
		if _, err := s.slowDelay(); err != nil {
			return err
		}
	case "":
		return fmt.Errorf("reactor is required")
	default:
		return fmt.Errorf("unknown reactor kind %q", s.Reactor)
	}
	if s.Reactor != KindAggregator && s.Children != 0 {
		return fmt.Errorf("children is only valid for an aggregator")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := s.validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := s.validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func (s *Scenario) validateStep(step Step) error {
	if _, err := step.timeout(); err != nil {
		return err
	}
	if step.Repeat < 0 {
		return fmt.Errorf("repeat must be non-negative")
	}

	if step.AwaitFinished != "" {
		if step.Target != "" || step.Event != "" {
			return fmt.Errorf("await_finished cannot be combined with target or event")
		}
		if err := s.checkTarget(step.AwaitFinished); err != nil {
			return err
		}
		if !s.finishes(step.AwaitFinished) {
			return fmt.Errorf("%s never finishes", step.AwaitFinished)
		}
		return nil
	}

	if step.Target == "" || step.Event == "" {
		return fmt.Errorf("target and event are required")
	}
	if step.Target == TargetChildren {
		if s.Reactor != KindAggregator {
			return fmt.Errorf("target %q needs an aggregator", TargetChildren)
		}
	} else if err := s.checkTarget(step.Target); err != nil {
		return err
	}
	return s.checkEvent(step.Target, step.Event)
}

// checkEvent rejects events the target reactor has no transition for:
// those are fatal contract violations, not assertion failures.
func (s *Scenario) checkEvent(target, event string) error {
	if s.Reactor == KindRacer {
		return nil
	}

	e := demo.Event(event)
	if !e.Valid() {
		return fmt.Errorf("unknown event %q", event)
	}
	if target != TargetRoot {
		return nil
	}
	switch {
	case s.Reactor == KindAggregator && e == demo.Stop:
		return fmt.Errorf("an aggregator cannot be stopped")
	case s.Reactor == KindLatch && e != demo.Increment:
		return fmt.Errorf("a latch only accepts %q", demo.Increment)
	}
	return nil
}

func (s *Scenario) validateAssertion(a Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("type is required")
	}
	if err := s.checkTarget(a.Target); err != nil {
		return err
	}

	switch a.Type {
	case AssertFinalStatus:
		if a.Status != string(reactor.StatusRunning) && a.Status != string(reactor.StatusFinished) {
			return fmt.Errorf("status must be running or finished for final_status")
		}
	case AssertFinalState:
		if a.Expect == nil {
			return fmt.Errorf("expect is required for final_state")
		}
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for trace_count")
		}
		if a.Cause != "" && !validCause(a.Cause) {
			return fmt.Errorf("unknown cause %q", a.Cause)
		}
	case AssertTraceOrder:
		if len(a.Causes) == 0 {
			return fmt.Errorf("causes list is required for trace_order")
		}
		for _, c := range a.Causes {
			if !validCause(c) {
				return fmt.Errorf("unknown cause %q", c)
			}
		}
	case AssertTraceContains:
		if a.State == nil {
			return fmt.Errorf("state is required for trace_contains")
		}
		if a.Cause != "" && !validCause(a.Cause) {
			return fmt.Errorf("unknown cause %q", a.Cause)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func (s *Scenario) checkTarget(target string) error {
	if target == TargetRoot {
		return nil
	}
	n, ok := childIndex(target)
	if !ok {
		return fmt.Errorf("unknown target %q", target)
	}
	if n > s.Children {
		return fmt.Errorf("target %q out of range (%d children)", target, s.Children)
	}
	return nil
}

// childIndex parses "child-N" into N, counting from 1.
func childIndex(target string) (int, bool) {
	m := childTarget.FindStringSubmatch(target)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

// finishes reports whether the named reactor has a terminal value.
func (s *Scenario) finishes(target string) bool {
	if target != TargetRoot {
		return true
	}
	return s.Reactor == KindCounter || s.Reactor == KindRacer
}

func (s *Scenario) slowDelay() (time.Duration, error) {
	if s.SlowDelay == "" {
		return 0, fmt.Errorf("slow_delay is required for a racer")
	}
	d, err := time.ParseDuration(s.SlowDelay)
	if err != nil {
		return 0, fmt.Errorf("slow_delay: %w", err)
	}
	return d, nil
}

func (st Step) timeout() (time.Duration, error) {
	if st.Timeout == "" {
		return defaultTimeout, nil
	}
	d, err := time.ParseDuration(st.Timeout)
	if err != nil {
		return 0, fmt.Errorf("timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive")
	}
	return d, nil
}

func (st Step) repeat() int {
	if st.Repeat == 0 {
		return 1
	}
	return st.Repeat
}

func validCause(c string) bool {
	switch reactor.Cause(c) {
	case reactor.CauseLaunch, reactor.CauseEvent, reactor.CauseChild, reactor.CauseAsync, reactor.CauseImmediate:
		return true
	}
	return false
}
