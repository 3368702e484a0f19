package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <project-id>",
		Short: "Show a project's progress history",
		Long: `Show a project's progress reports in chain order.

Each record is annotated with whether its stored digest still matches
its stored payload, so silent edits surface immediately.

Example:
  sitechain history bridge-a12
  sitechain history bridge-a12 --output json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runHistory(opts *RootOptions, projectID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Output:    opts.Output,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	l, cleanup, err := openLedger(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	entries, err := l.History(cmd.Context(), projectID)
	if err != nil {
		return ledgerFailure(formatter, err)
	}

	if formatter.Output == "json" {
		return formatter.Success(entries)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Progress history for %s (%d records)\n", projectID, len(entries))
	invalid := 0
	for _, e := range entries {
		mark := "hash ok"
		if !e.HashValid {
			mark = "hash INVALID"
			invalid++
		}
		fmt.Fprintf(w, "  [%d] %s  %s%%  by %s  %s\n",
			e.Seq, e.ReportDate.String(), e.ReportedPercent.String(), e.ReportedBy, mark)
		if formatter.Verbose && e.Remarks != "" {
			fmt.Fprintf(w, "      remarks: %s\n", e.Remarks)
		}
		if formatter.Verbose {
			fmt.Fprintf(w, "      record_hash: %s\n", e.RecordHash)
		}
	}
	if invalid > 0 {
		fmt.Fprintf(w, "✗ %d record(s) no longer match their stored digest\n", invalid)
	}
	return nil
}
