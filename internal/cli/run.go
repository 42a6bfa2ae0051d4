package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/reactorcore/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario and print its trace",
		Long: `Run a YAML or CUE scenario against the demo reactors.

Prints whether every step ran and every assertion held, followed by the
recorded trace. With --db the journal is written to a SQLite file that
"reactor trace" can read; the file must not hold an earlier run.

Exit codes:
  0 - Scenario passed
  1 - Scenario failed
  2 - Command error (unreadable scenario, database error)

Examples:
  reactor run ./scenarios/counter_basic.yaml
  reactor run ./scenarios/aggregator.cue --db ./journal.db
  reactor run ./scenarios/racer_fast.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "write the journal to this SQLite file")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	runOpts := []harness.Option{harness.WithLogger(slog.Default())}
	if opts.Database != "" {
		runOpts = append(runOpts, harness.WithDatabase(opts.Database))
	}

	slog.Debug("running scenario", "scenario", scenario.Name, "db", opts.Database)
	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeRun, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	if formatter.JSON() {
		if result.Pass {
			return formatter.Success(result)
		}
		if err := formatter.Failure(ErrCodeFailed, "scenario failed", result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}

	w := cmd.OutOrStdout()
	printResult(w, scenario.Name, result)
	printTrace(w, result.Trace)
	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

// printResult writes the pass/fail line and any errors.
func printResult(w io.Writer, name string, result *harness.Result) {
	if result.Pass {
		fmt.Fprintf(w, "✓ %s (%d records)\n", name, len(result.Trace))
		return
	}
	fmt.Fprintf(w, "✗ %s\n", name)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func printTrace(w io.Writer, records []harness.TraceRecord) {
	for _, rec := range records {
		fmt.Fprintf(w, "  [%d] %-8s %-9s %-8s %s\n", rec.Seq, rec.Reactor, rec.Cause, rec.Status, rec.State)
	}
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
