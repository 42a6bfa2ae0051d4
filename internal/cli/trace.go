package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/reactorcore/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Reactor  string // optional - filter to one reactor
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Reactor  string        `json:"reactor,omitempty"`
	Reactors []string      `json:"reactors"`
	Timeline []trace.Entry `json:"timeline"`
	Stats    TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the timeline.
type TraceStats struct {
	Records  int            `json:"records"`
	Finished int            `json:"finished"`
	ByCause  map[string]int `json:"by_cause"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the recorded timeline of a journal",
		Long: `Print the states recorded in a journal written by "reactor run --db".

Records are ordered by seq. With --reactor only that reactor's timeline is
shown. Each record names its cause: launch, event, child, async or immediate.

Examples:
  reactor trace --db ./journal.db
  reactor trace --db ./journal.db --reactor child-3
  reactor trace --db ./journal.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Reactor, "reactor", "", "show only this reactor")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Opening a missing path would create an empty journal.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeDatabase, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := trace.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	reactors, err := st.Reactors(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list reactors", err)
	}

	var timeline []trace.Entry
	if opts.Reactor != "" {
		timeline, err = st.Timeline(ctx, opts.Reactor)
	} else {
		timeline, err = st.Entries(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read timeline", err)
	}
	if timeline == nil {
		timeline = []trace.Entry{}
	}

	result := TraceResult{
		Reactor:  opts.Reactor,
		Reactors: reactors,
		Timeline: timeline,
		Stats:    buildStats(timeline),
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

func buildStats(timeline []trace.Entry) TraceStats {
	stats := TraceStats{Records: len(timeline), ByCause: make(map[string]int)}
	for _, e := range timeline {
		stats.ByCause[e.Cause]++
		if e.Status == "finished" {
			stats.Finished++
		}
	}
	return stats
}

func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if len(result.Timeline) == 0 {
		if result.Reactor != "" {
			fmt.Fprintf(w, "No records found for reactor: %s\n", result.Reactor)
		} else {
			fmt.Fprintln(w, "No records found.")
		}
		return nil
	}

	if result.Reactor != "" {
		fmt.Fprintf(w, "Timeline of %s\n", result.Reactor)
	} else {
		fmt.Fprintf(w, "Timeline of %d reactor(s)\n", len(result.Reactors))
	}
	for _, e := range result.Timeline {
		fmt.Fprintf(w, "  [%d] %-8s %-9s %-8s %s\n", e.Seq, e.ReactorID, e.Cause, e.Status, e.State)
		if verbose {
			fmt.Fprintf(w, "        hash %s\n", e.StateHash)
		}
	}

	causes := make([]string, 0, len(result.Stats.ByCause))
	for c := range result.Stats.ByCause {
		causes = append(causes, c)
	}
	sort.Strings(causes)

	fmt.Fprintf(w, "\n%d record(s), %d finished", result.Stats.Records, result.Stats.Finished)
	for _, c := range causes {
		fmt.Fprintf(w, ", %s=%d", c, result.Stats.ByCause[c])
	}
	fmt.Fprintln(w)
	return nil
}
