package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/verist/sitechain/internal/canonical"
	"github.com/verist/sitechain/internal/chain"
	"github.com/verist/sitechain/internal/ledger"
	"github.com/verist/sitechain/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Format string
	Out    string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the audit chain",
		Long: `Export audit records in chain order, capped at the configured
export limit.

JSON output is an array of records; CSV carries one record per row with
the detail column holding the canonical JSON text the digest was
computed over. Without --out the export goes to stdout.

Example:
  sitechain export
  sitechain export --format csv --out audit.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "json", "export format (json|csv)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write to file instead of stdout")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Output:    opts.Output,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Format != "json" && opts.Format != "csv" {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be json or csv", opts.Format))
	}

	cfg, err := resolveConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	st, err := store.Open(cfg.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	records, err := ledger.New(st).Export(cmd.Context(), cfg.ExportLimit)
	if err != nil {
		return ledgerFailure(formatter, err)
	}
	formatter.VerboseLog("exporting %d audit record(s)", len(records))

	out := cmd.OutOrStdout()
	if opts.Out != "" {
		f, err := os.Create(opts.Out)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer f.Close()
		out = f
	}

	if opts.Format == "csv" {
		err = exportCSV(out, records)
	} else {
		err = exportJSON(out, records)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "export failed", err)
	}

	if opts.Out != "" {
		fmt.Fprintf(formatter.Writer, "✓ Exported %d audit record(s) to %s\n", len(records), opts.Out)
	}
	return nil
}

// exportJSON writes records as an indented JSON array, the same payload
// the HTTP export endpoint serves.
func exportJSON(w io.Writer, records []chain.AuditRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// exportCSV writes one record per row. Column order matches the HTTP
// export endpoint.
func exportCSV(w io.Writer, records []chain.AuditRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"seq", "id", "actor_id", "action", "entity_type", "entity_id",
		"detail", "ip_address", "user_agent", "created_at", "prev_hash", "record_hash",
	}); err != nil {
		return err
	}
	for _, rec := range records {
		detail, err := canonical.MarshalCanonical(rec.Detail)
		if err != nil {
			return fmt.Errorf("marshal detail for %s: %w", rec.ID, err)
		}
		if err := cw.Write([]string{
			strconv.FormatInt(rec.Seq, 10),
			rec.ID,
			rec.ActorID,
			rec.Action,
			rec.EntityType,
			rec.EntityID,
			string(detail),
			rec.IPAddress,
			rec.UserAgent,
			rec.CreatedAt.String(),
			rec.PrevHash,
			rec.RecordHash,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
