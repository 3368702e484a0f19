package cli

import (
	"log/slog"

	"github.com/verist/sitechain/internal/config"
	"github.com/verist/sitechain/internal/ledger"
	"github.com/verist/sitechain/internal/store"
)

// resolveConfig loads configuration for a command and applies the global
// --db override on top of file and environment settings.
func resolveConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.DB != "" {
		cfg.DB = opts.DB
	}
	return cfg, nil
}

// openLedger opens the configured database and wraps it in a ledger.
// The returned cleanup closes the store and logs any close error.
func openLedger(opts *RootOptions) (*ledger.Ledger, func(), error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	cleanup := func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}

	return ledger.New(st), cleanup, nil
}
