package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verist/sitechain/internal/chain"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Audit bool
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify [project-id]",
		Short: "Replay a chain and report integrity findings",
		Long: `Replay a chain from its first record and recompute every digest.

Verifies one project's progress chain, or the global audit chain with
--audit. Every record whose payload no longer matches its digest is
reported as HASH_MISMATCH; every broken link to a predecessor as
LINK_MISMATCH. Findings exit with code 1.

Example:
  sitechain verify bridge-a12
  sitechain verify --audit
  sitechain verify bridge-a12 --output json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Audit, "audit", false, "verify the global audit chain")

	return cmd
}

func runVerify(opts *VerifyOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Output:    opts.Output,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var scope chain.Scope
	switch {
	case opts.Audit && len(args) > 0:
		return NewExitError(ExitCommandError, "pass a project id or --audit, not both")
	case opts.Audit:
		scope = chain.AuditScope()
	case len(args) == 1:
		scope = chain.ProgressScope(args[0])
	default:
		return NewExitError(ExitCommandError, "pass a project id or --audit")
	}

	l, cleanup, err := openLedger(opts.RootOptions)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := l.VerifyChain(cmd.Context(), scope)
	if err != nil {
		return ledgerFailure(formatter, err)
	}

	if formatter.Output == "json" {
		return outputVerifyJSON(formatter, result)
	}
	return outputVerifyText(formatter, result)
}

// outputVerifyJSON emits the full verification result. An invalid chain
// still reports as status "error" so scripts can gate on it.
func outputVerifyJSON(formatter *OutputFormatter, result chain.VerificationResult) error {
	if result.ChainValid {
		return formatter.Success(result)
	}

	response := CLIResponse{
		Status: "error",
		Data:   result,
		Error: &CLIError{
			Code:    string(result.Findings[0].Kind),
			Message: fmt.Sprintf("chain %s has %d integrity finding(s)", result.Scope, len(result.Findings)),
		},
	}
	encoder := json.NewEncoder(formatter.Writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	return NewExitError(ExitFailure, fmt.Sprintf("verification failed with %d finding(s)", len(result.Findings)))
}

func outputVerifyText(formatter *OutputFormatter, result chain.VerificationResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Chain: %s\n", result.Scope)
	fmt.Fprintf(w, "Records checked: %d\n", result.RecordsChecked)

	if result.ChainValid {
		fmt.Fprintln(w, "✓ Chain valid")
		return nil
	}

	fmt.Fprintln(w, "✗ Chain INVALID")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Findings:")
	for _, f := range result.Findings {
		fmt.Fprintf(w, "  [seq %d] %s record %s\n", f.Seq, f.Kind, f.RecordID)
		fmt.Fprintf(w, "    expected: %s\n", formatter.hash(f.Expected))
		fmt.Fprintf(w, "    actual:   %s\n", formatter.hash(f.Actual))
	}

	return NewExitError(ExitFailure, fmt.Sprintf("verification failed with %d finding(s)", len(result.Findings)))
}

// hash renders a digest for text output, truncated unless verbose.
func (f *OutputFormatter) hash(h string) string {
	if f.Verbose || len(h) <= 16 {
		return h
	}
	return h[:8] + "..." + h[len(h)-8:]
}
