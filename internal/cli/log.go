package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verist/sitechain/internal/canonical"
	"github.com/verist/sitechain/internal/ledger"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Action     string
	EntityType string
	EntityID   string
	DetailJSON string
	Actor      string
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Append an audit record",
		Long: `Append an administrative event to the global audit chain.

The detail payload is a JSON object hashed into the record. Canonical
rules apply: no nulls, no exponent notation, numbers limited to two
decimal places.

Example:
  sitechain log --action APPROVE_BUDGET --entity-type project --entity-id bridge-a12 --actor admin-1
  sitechain log --action SUSPEND_USER --entity-type user --entity-id u-204 \
    --detail-json '{"reason":"credential rotation"}' --actor admin-1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Action, "action", "", "action name, e.g. APPROVE_BUDGET (required)")
	_ = cmd.MarkFlagRequired("action")
	cmd.Flags().StringVar(&opts.EntityType, "entity-type", "", "entity type the action touched (required)")
	_ = cmd.MarkFlagRequired("entity-type")
	cmd.Flags().StringVar(&opts.EntityID, "entity-id", "", "entity identifier (required)")
	_ = cmd.MarkFlagRequired("entity-id")
	cmd.Flags().StringVar(&opts.DetailJSON, "detail-json", "{}", "detail payload as a JSON object")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "acting user (required)")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Output:    opts.Output,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var detail canonical.Object
	if err := json.Unmarshal([]byte(opts.DetailJSON), &detail); err != nil {
		return WrapExitError(ExitCommandError, "invalid --detail-json", err)
	}

	l, cleanup, err := openLedger(opts.RootOptions)
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := l.AppendAudit(cmd.Context(), ledger.AuditInput{
		ActorID:    opts.Actor,
		Action:     opts.Action,
		EntityType: opts.EntityType,
		EntityID:   opts.EntityID,
		Detail:     detail,
	})
	if err != nil {
		return ledgerFailure(formatter, err)
	}

	if formatter.Output == "json" {
		return formatter.Success(rec)
	}
	fmt.Fprintf(formatter.Writer, "✓ Audit record appended: %s on %s/%s (seq %d)\n",
		rec.Action, rec.EntityType, rec.EntityID, rec.Seq)
	formatter.VerboseLog("record_hash: %s", rec.RecordHash)
	return nil
}
