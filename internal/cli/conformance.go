package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/verist/sitechain/internal/harness"
)

// ConformanceOptions holds flags for the conformance command.
type ConformanceOptions struct {
	*RootOptions
}

// NewConformanceCommand creates the conformance command.
func NewConformanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConformanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "conformance <scenarios-dir>",
		Short: "Run YAML conformance scenarios",
		Long: `Run conformance scenarios against throwaway ledgers.

Each YAML file defines setup steps, a flow of ledger operations with
expected outcomes, and assertions over chain verification and final
state. Every scenario runs in its own temporary database; the configured
database is never touched.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (missing directory, no scenario files)

Example:
  sitechain conformance ./scenarios
  sitechain conformance ./scenarios --output json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConformance(opts, args[0], cmd)
		},
	}

	return cmd
}

func runConformance(opts *ConformanceOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Output:    opts.Output,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(dir); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("scenario directory %s", dir), err)
	}

	suite, err := harness.RunSuite(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "run scenarios", err)
	}
	if suite.Total == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no scenario files under %s", dir))
	}

	if formatter.Output == "json" {
		return outputConformanceJSON(formatter, suite)
	}
	return outputConformanceText(formatter, suite)
}

func outputConformanceJSON(formatter *OutputFormatter, suite *harness.SuiteResult) error {
	if suite.Failed == 0 {
		return formatter.Success(suite)
	}

	response := CLIResponse{
		Status: "error",
		Data:   suite,
		Error: &CLIError{
			Code:    "CONFORMANCE",
			Message: fmt.Sprintf("%d of %d scenario(s) failed", suite.Failed, suite.Total),
		},
	}
	if err := json.NewEncoder(formatter.Writer).Encode(response); err != nil {
		return err
	}

	return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", suite.Failed))
}

func outputConformanceText(formatter *OutputFormatter, suite *harness.SuiteResult) error {
	w := formatter.Writer

	for _, outcome := range suite.Scenarios {
		if outcome.Passed {
			fmt.Fprintf(w, "✓ %s\n", outcome.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", outcome.Name)
		for _, msg := range outcome.Errors {
			fmt.Fprintf(w, "    %s\n", msg)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Passed: %d  Failed: %d  Total: %d\n", suite.Passed, suite.Failed, suite.Total)

	if suite.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", suite.Failed))
	}
	return nil
}
