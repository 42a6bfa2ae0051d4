package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reactorcore/internal/harness"
)

// FileValidation is the validation outcome of one scenario file.
type FileValidation struct {
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results for every file.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Validate scenario files without running them",
		Long: `Parse and validate YAML or CUE scenario files.

YAML files are decoded strictly (unknown fields are errors). CUE files are
unified with the built-in #Scenario schema. Both then go through the same
semantic checks: known reactor kind, targets in range, events the target
reactor accepts.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)

		fv := FileValidation{Path: path, Valid: true}
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			fv.Valid = false
			fv.Error = err.Error()
			result.Valid = false
		} else {
			fv.Name = scenario.Name
		}
		result.Files = append(result.Files, fv)
	}

	if formatter.JSON() {
		if result.Valid {
			return formatter.Success(result)
		}
		if err := formatter.Failure(ErrCodeLoad, "invalid scenario files", result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "validation failed")
	}

	w := cmd.OutOrStdout()
	invalid := 0
	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(w, "✓ %s (%s)\n", fv.Path, fv.Name)
			continue
		}
		invalid++
		fmt.Fprintf(w, "✗ %s\n  %s\n", fv.Path, fv.Error)
	}
	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d file(s) invalid", invalid, len(result.Files)))
	}
	return nil
}
