package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verist/sitechain/internal/canonical"
	"github.com/verist/sitechain/internal/ledger"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Date    string
	Percent string
	Remarks string
	Actor   string
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report <project-id>",
		Short: "Append a progress report",
		Long: `Append a progress report to a project's chain.

One report per project per calendar day; the date may not be in the
future and the percentage must be between 0 and 100 with at most two
decimal places. The appended record links to the current chain head and
a LOG_PROGRESS entry lands on the audit chain.

Example:
  sitechain report bridge-a12 --date 2024-01-15 --percent 35.5 --actor engineer-7
  sitechain report bridge-a12 --date 2024-01-16 --percent 36 --remarks "east span poured" --actor engineer-7`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "report date, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("date")
	cmd.Flags().StringVar(&opts.Percent, "percent", "", "completion percentage, e.g. 35.5 (required)")
	_ = cmd.MarkFlagRequired("percent")
	cmd.Flags().StringVar(&opts.Remarks, "remarks", "", "free-form remarks (not part of the record digest)")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "reporting user (required)")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}

func runReport(opts *ReportOptions, projectID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Output:    opts.Output,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	reportDate, err := canonical.ParseDate(opts.Date)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --date", err)
	}
	percent, err := canonical.ParseDecimal(opts.Percent)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --percent", err)
	}

	l, cleanup, err := openLedger(opts.RootOptions)
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := l.AppendProgress(cmd.Context(), ledger.ProgressInput{
		ProjectID:       projectID,
		ReportDate:      reportDate,
		ReportedPercent: percent,
		ReportedBy:      opts.Actor,
		Remarks:         opts.Remarks,
	})
	if err != nil {
		return ledgerFailure(formatter, err)
	}

	if formatter.Output == "json" {
		return formatter.Success(rec)
	}
	fmt.Fprintf(formatter.Writer, "✓ Progress recorded: %s at %s%% on %s (seq %d)\n",
		rec.ProjectID, rec.ReportedPercent.String(), rec.ReportDate.String(), rec.Seq)
	formatter.VerboseLog("record_hash: %s", rec.RecordHash)
	return nil
}
