package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/verist/sitechain/internal/canonical"
	"github.com/verist/sitechain/internal/ledger"
)

// PurgeOptions holds flags for the purge command.
type PurgeOptions struct {
	*RootOptions
	KeepDays int
	DryRun   bool
	Actor    string
}

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PurgeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Purge audit records past retention",
		Long: `Delete audit records older than the retention window.

Records created before midnight-minus-keep-days are removed and a
PURGE_AUDIT_LOGS record lands on the audit chain naming the cutoff and
the count. The retained window still verifies. --keep-days defaults to
the configured retention_days. A dry run only counts.

Example:
  sitechain purge --dry-run
  sitechain purge --keep-days 365 --actor admin-1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.KeepDays, "keep-days", -1, "days of audit history to keep (default: config retention_days)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "count matching records without deleting")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "acting user recorded on the purge trail (required unless --dry-run)")

	return cmd
}

func runPurge(opts *PurgeOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Output:    opts.Output,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if !opts.DryRun && opts.Actor == "" {
		return NewExitError(ExitCommandError, "--actor is required unless --dry-run is set")
	}

	cfg, err := resolveConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	keepDays := opts.KeepDays
	if keepDays < 0 {
		keepDays = cfg.RetentionDays
	}
	if keepDays < 1 {
		return NewExitError(ExitCommandError, "--keep-days must be at least 1")
	}

	l, cleanup, err := openLedger(opts.RootOptions)
	if err != nil {
		return err
	}
	defer cleanup()

	cutoff := canonical.TimeOf(time.Now().UTC().AddDate(0, 0, -keepDays))
	formatter.VerboseLog("purge cutoff: %s", cutoff.String())

	result, err := l.PurgeAudit(cmd.Context(), ledger.PurgeInput{
		ActorID:   opts.Actor,
		OlderThan: cutoff,
		DryRun:    opts.DryRun,
	})
	if err != nil {
		return ledgerFailure(formatter, err)
	}

	if formatter.Output == "json" {
		return formatter.Success(result)
	}
	if result.DryRun {
		fmt.Fprintf(formatter.Writer, "Would remove %d audit record(s) older than %s (dry run)\n",
			result.Removed, result.Cutoff.String())
		return nil
	}
	fmt.Fprintf(formatter.Writer, "✓ Removed %d audit record(s) older than %s\n",
		result.Removed, result.Cutoff.String())
	return nil
}
