package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/reactorcore/internal/demo"
	"github.com/roach88/reactorcore/internal/trace"
	"github.com/roach88/reactorcore/reactor"
	"github.com/roach88/reactorcore/sched"
)

// AggregateOptions holds flags for the aggregate command.
type AggregateOptions struct {
	*RootOptions
	Children int
	Count    int
	Database string
}

// AggregateResult is the outcome of one composition run.
type AggregateResult struct {
	Children int    `json:"children"`
	Count    int    `json:"count"`
	Expected int    `json:"expected"`
	Total    int    `json:"total"`
	Elapsed  string `json:"elapsed"`
}

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AggregateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Run the counter composition and check its total",
		Long: `Build an aggregator over N counters, each on its own scheduler.

One goroutine per child sends --count increments to its counter and then one
increment to the aggregator; a final increment is sent once all producers are
done. The aggregator must end with a total of children*count + children + 1.

Exit codes:
  0 - Total matches
  1 - Total does not match`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Children, "children", 10, "number of counter children")
	cmd.Flags().IntVar(&opts.Count, "count", 100, "increments sent to each child")
	cmd.Flags().StringVar(&opts.Database, "db", "", "also journal every state into this SQLite file")

	return cmd
}

func runAggregate(opts *AggregateOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.Children < 1 || opts.Count < 0 {
		return NewExitError(ExitCommandError, "--children must be at least 1 and --count non-negative")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reactorOpts := []reactor.Option{reactor.WithLogger(slog.Default())}
	var rec *trace.Recorder
	if opts.Database != "" {
		rec = trace.NewRecorder()
		reactorOpts = append(reactorOpts, reactor.WithTracer(rec))
	}

	start := time.Now()

	counters := make([]*demo.Counter, opts.Children)
	for i := range counters {
		name := fmt.Sprintf("child-%d", i+1)
		counters[i] = demo.NewCounter(sched.New(name), named(name, reactorOpts)...)
	}
	aggSched := sched.New("aggregator")
	agg := demo.NewAggregator(aggSched, counters, named("aggregator", reactorOpts)...)
	agg.Launch()

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counters {
		g.Go(func() error {
			for i := 0; i < opts.Count; i++ {
				if err := c.SendSyncContext(gctx, demo.Increment); err != nil {
					return err
				}
			}
			return agg.SendSyncContext(gctx, demo.Increment)
		})
	}
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitCommandError, "producer failed", err)
	}
	if err := agg.SendSyncContext(ctx, demo.Increment); err != nil {
		return WrapExitError(ExitCommandError, "final increment failed", err)
	}

	result := AggregateResult{
		Children: opts.Children,
		Count:    opts.Count,
		Expected: opts.Children*opts.Count + opts.Children + 1,
		Total:    agg.Total(),
		Elapsed:  time.Since(start).Round(time.Microsecond).String(),
	}
	slog.Debug("composition done", "total", result.Total, "expected", result.Expected)

	if rec != nil {
		if err := journal(ctx, opts.Database, rec); err != nil {
			return err
		}
	}

	ok := result.Total == result.Expected
	switch {
	case formatter.JSON() && ok:
		return formatter.Success(result)
	case formatter.JSON():
		if err := formatter.Failure(ErrCodeFailed, "total mismatch", result); err != nil {
			return err
		}
	default:
		mark := "✓"
		if !ok {
			mark = "✗"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s total %d (expected %d) from %d children x %d increments in %s\n",
			mark, result.Total, result.Expected, result.Children, result.Count, result.Elapsed)
	}

	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("total %d, expected %d", result.Total, result.Expected))
	}
	return nil
}

func named(name string, opts []reactor.Option) []reactor.Option {
	return append([]reactor.Option{reactor.WithName(name)}, opts...)
}

func journal(ctx context.Context, path string, rec *trace.Recorder) error {
	if err := rec.Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to record trace", err)
	}

	st, err := trace.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := rec.Flush(ctx, st); err != nil {
		return WrapExitError(ExitCommandError, "failed to write journal", err)
	}
	return nil
}
