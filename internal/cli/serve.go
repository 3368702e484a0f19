package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/verist/sitechain/internal/api"
	"github.com/verist/sitechain/internal/ledger"
	"github.com/verist/sitechain/internal/store"
)

// shutdownGrace bounds how long in-flight requests may run after a
// termination signal.
const shutdownGrace = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the sitechain HTTP API.

Opens the SQLite database (creating it if it doesn't exist) and serves
the progress and audit endpoints until interrupted. The listen address,
database path, and export cap come from the config file and environment,
with --db taking precedence.

Example:
  sitechain serve
  sitechain serve --config ./sitechain.yaml
  sitechain serve --db /var/lib/sitechain/ledger.db --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}

	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	slog.Info("opening database", "path", cfg.DB)
	st, err := store.Open(cfg.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database ready")

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(ledger.New(st), cfg.ExportLimit).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	slog.Info("server starting", "addr", cfg.Addr, "db", cfg.DB)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving sitechain API on %s\n", cfg.Addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			return WrapExitError(ExitFailure, "server error", err)
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return WrapExitError(ExitFailure, "graceful shutdown failed", err)
		}
	}

	slog.Info("server stopped gracefully")
	return nil
}
