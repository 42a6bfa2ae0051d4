package cli

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// Output formats accepted by --format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var formats = []string{FormatText, FormatJSON}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string
}

func (o *RootOptions) check() error {
	if slices.Contains(formats, o.Format) {
		return nil
	}
	return fmt.Errorf("invalid format %q: want %s", o.Format, strings.Join(formats, " or "))
}

// logLevel is Warn by default; --verbose shows every transition.
func (o *RootOptions) logLevel() slog.Level {
	if o.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewRootCommand creates the root command for the reactor CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "reactor",
		Short: "Hierarchical reactor engine tools",
		Long: `Run and inspect reactor scenarios.

Scenarios drive the demo reactors (counter, aggregator, racer, latch) and
record every published state into a SQLite journal.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.check(); err != nil {
				return err
			}
			// Logs go to stderr; stdout carries command output only.
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: opts.logLevel()})))
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging and extra detail")
	flags.StringVar(&opts.Format, "format", FormatText, "output format: text or json")

	cmd.AddCommand(
		NewRunCommand(opts),
		NewValidateCommand(opts),
		NewTestCommand(opts),
		NewTraceCommand(opts),
		NewAggregateCommand(opts),
	)
	return cmd
}
