package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/reactorcore/contract"
	"github.com/roach88/reactorcore/internal/canonical"
	"github.com/roach88/reactorcore/internal/demo"
	"github.com/roach88/reactorcore/internal/testutil"
	"github.com/roach88/reactorcore/internal/trace"
	"github.com/roach88/reactorcore/reactor"
	"github.com/roach88/reactorcore/sched"
)

// Option configures a scenario run.
type Option func(*options)

type options struct {
	dbPath string
	logger *slog.Logger
}

// WithDatabase journals the run into the SQLite file at path instead of a
// throwaway in-memory database. The file must not hold an earlier run.
func WithDatabase(path string) Option {
	return func(o *options) {
		o.dbPath = path
	}
}

// WithLogger sets the logger handed to every reactor and scheduler.
// Default: logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// target is the harness's untyped view of one reactor.
type target interface {
	send(ctx context.Context, event string, async bool) error
	current() (reactor.Status, any)
	done() <-chan struct{}
}

type workflow[E, S, V any] struct {
	core  *reactor.Core[E, S, V]
	event func(string) E
}

func (w workflow[E, S, V]) send(ctx context.Context, event string, async bool) error {
	e := w.event(event)
	if async {
		w.core.Send(e)
		return nil
	}
	return w.core.SendSyncContext(ctx, e)
}

func (w workflow[E, S, V]) current() (reactor.Status, any) {
	ws := w.core.Current()
	return ws.Status(), ws.Payload()
}

func (w workflow[E, S, V]) done() <-chan struct{} {
	return w.core.Ready().Done()
}

func counterEvent(s string) demo.Event { return demo.Event(s) }
func label(s string) string            { return s }

// Harness is the scenario execution engine.
// Every reactor it builds shares one DeterministicClock and one Recorder, so
// the journal holds a single seq-ordered timeline of the whole tree.
type Harness struct {
	store    *trace.Store
	recorder *trace.Recorder
	clock    *testutil.DeterministicClock
	logger   *slog.Logger

	schedulers []*sched.Scheduler
	targets    map[string]target
	order      []string
	children   []string

	mu         sync.Mutex
	violations []string
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Open the journal (in-memory unless WithDatabase)
// 2. Build and launch the reactor tree with fixed IDs
// 3. Execute steps in order
// 4. Let every scheduler go quiet, then flush the recorded trace
// 5. Evaluate assertions and record the run
//
// The returned error covers setup and journal failures; failed steps,
// contract violations and failed assertions are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	path := ":memory:"
	if o.dbPath != "" {
		path = o.dbPath
	}
	st, err := trace.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	existing, err := st.Reactors(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("journal %s already holds %d reactors", path, len(existing))
	}

	h := &Harness{
		store:    st,
		recorder: trace.NewRecorder(),
		clock:    testutil.NewDeterministicClock(),
		logger:   o.logger,
		targets:  make(map[string]target),
	}
	defer h.close()

	if err := h.build(scenario); err != nil {
		return nil, fmt.Errorf("failed to build reactors: %w", err)
	}

	result := NewResult()
	result.RunID = uuid.Must(uuid.NewV7()).String()

	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, step); err != nil {
			result.AddError(fmt.Sprintf("step %d: %v", i, err))
			break
		}
	}
	h.settle()

	for _, msg := range h.takeViolations() {
		result.AddError(msg)
	}
	if err := h.recorder.Err(); err != nil {
		result.AddError(err.Error())
	}
	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	run := trace.Run{
		ID:       result.RunID,
		Scenario: scenario.Name,
		Passed:   result.Pass,
		Error:    strings.Join(result.Errors, "; "),
	}
	if err := st.WriteRun(ctx, run); err != nil {
		return nil, err
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"run", result.RunID,
		"pass", result.Pass,
		"records", len(result.Trace),
	)
	return result, nil
}

// build creates the reactor tree. The root is always "root"; aggregator
// children are "child-1".."child-N" in creation order.
func (h *Harness) build(s *Scenario) error {
	traced := []reactor.Option{
		reactor.WithLogger(h.logger),
		reactor.WithTracer(h.recorder),
		reactor.WithSequencer(h.clock),
	}
	rootOpts := append([]reactor.Option{reactor.WithID(TargetRoot), reactor.WithName(s.Reactor)}, traced...)

	switch s.Reactor {
	case KindCounter:
		c := demo.NewCounter(h.scheduler(TargetRoot), rootOpts...)
		c.Launch()
		h.add(TargetRoot, workflow[demo.Event, demo.CounterState, int]{c.Core, counterEvent})

	case KindAggregator:
		h.children = testutil.SequentialIDs("child", s.Children)
		ids := testutil.NewFixedIDGenerator(h.children...)
		childOpts := append([]reactor.Option{reactor.WithIDGenerator(ids), reactor.WithName(KindCounter)}, traced...)

		counters := make([]*demo.Counter, s.Children)
		for i, id := range h.children {
			counters[i] = demo.NewCounter(h.scheduler(id), childOpts...)
			h.add(id, workflow[demo.Event, demo.CounterState, int]{counters[i].Core, counterEvent})
		}

		agg := demo.NewAggregator(h.scheduler(TargetRoot), counters, rootOpts...)
		agg.Launch()
		h.add(TargetRoot, workflow[demo.Event, demo.AggregatorState, reactor.Never]{agg.Core, counterEvent})

	case KindRacer:
		delay, err := s.slowDelay()
		if err != nil {
			return err
		}
		r := demo.NewRacer(h.scheduler(TargetRoot), delay, rootOpts...)
		r.Launch()
		h.add(TargetRoot, workflow[string, string, string]{r.Core, label})

	case KindLatch:
		l := demo.NewLatch(h.scheduler(TargetRoot), s.Limit, rootOpts...)
		l.Launch()
		h.add(TargetRoot, workflow[demo.Event, demo.CounterState, reactor.Never]{l.Core, counterEvent})

	default:
		return fmt.Errorf("unknown reactor kind %q", s.Reactor)
	}
	return nil
}

// scheduler creates a dedicated scheduler whose panics become run errors
// instead of crashing the process.
func (h *Harness) scheduler(name string) *sched.Scheduler {
	s := sched.New(name,
		sched.WithLogger(h.logger),
		sched.WithPanicHandler(func(recovered any) {
			h.violate(name, recovered)
		}),
	)
	h.schedulers = append(h.schedulers, s)
	return s
}

func (h *Harness) add(id string, t target) {
	h.targets[id] = t
	h.order = append(h.order, id)
}

func (h *Harness) violate(name string, recovered any) {
	msg := fmt.Sprintf("panic on %s: %v", name, recovered)
	if code := contract.CodeOf(recovered); code != "" {
		msg = fmt.Sprintf("contract violation %s on %s: %v", code, name, recovered)
	}

	h.mu.Lock()
	h.violations = append(h.violations, msg)
	h.mu.Unlock()
}

func (h *Harness) takeViolations() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	v := h.violations
	h.violations = nil
	return v
}

func (h *Harness) runStep(ctx context.Context, step Step) error {
	timeout, err := step.timeout()
	if err != nil {
		return err
	}

	if step.AwaitFinished != "" {
		t, ok := h.targets[step.AwaitFinished]
		if !ok {
			return fmt.Errorf("unknown target %q", step.AwaitFinished)
		}
		wctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		select {
		case <-t.done():
			return nil
		case <-wctx.Done():
			return fmt.Errorf("%s did not finish within %s", step.AwaitFinished, timeout)
		}
	}

	if step.Target != TargetChildren {
		return h.send(ctx, step.Target, step, timeout)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range h.children {
		g.Go(func() error {
			return h.send(gctx, id, step, timeout)
		})
	}
	return g.Wait()
}

func (h *Harness) send(ctx context.Context, id string, step Step, timeout time.Duration) error {
	t, ok := h.targets[id]
	if !ok {
		return fmt.Errorf("unknown target %q", id)
	}

	for i := 0; i < step.repeat(); i++ {
		sctx, cancel := context.WithTimeout(ctx, timeout)
		err := t.send(sctx, step.Event, step.Async)
		cancel()
		if err != nil {
			return fmt.Errorf("send %q to %s: %w", step.Event, id, err)
		}
	}
	return nil
}

// settle flushes every scheduler until a full round records nothing new.
func (h *Harness) settle() {
	for {
		before := h.clock.Current()
		for _, s := range h.schedulers {
			s.Flush()
		}
		if h.clock.Current() == before {
			return
		}
	}
}

// collect captures final states and reads the trace back from the journal.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	for _, id := range h.order {
		status, payload := h.targets[id].current()
		state, err := canonical.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode final state of %s: %w", id, err)
		}
		result.Final[id] = FinalState{Status: string(status), State: json.RawMessage(state)}
	}

	if err := h.recorder.Flush(ctx, h.store); err != nil {
		return fmt.Errorf("failed to flush trace: %w", err)
	}
	entries, err := h.store.Entries(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		result.AddEntry(e)
	}
	return nil
}

func (h *Harness) close() {
	for _, s := range h.schedulers {
		s.Close()
	}
}
