package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/stockroom/internal/allocation"
	"github.com/roach88/stockroom/internal/config"
	"github.com/roach88/stockroom/internal/correlation"
	"github.com/roach88/stockroom/internal/store"
)

// env is what a command needs after config, logging and the store are set up.
type env struct {
	cfg    config.Config
	store  *store.Store
	logger *slog.Logger
	out    *OutputFormatter
}

// setup loads configuration, installs the slog handler and opens the store.
// The returned cleanup closes the store.
func setup(opts *RootOptions, cmd *cobra.Command) (*env, func(), error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database.DSN = opts.Database
	}

	// Configure logging based on config and verbose flag
	logLevel := cfg.SlogLevel()
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)

	logger.Debug("opening database", "driver", cfg.Database.Driver)
	st, err := store.OpenDriver(cfg.Database.Driver, cfg.Database.DSN,
		store.WithMaxAttempts(cfg.Transactions.MaxAttempts),
		store.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	e := &env{
		cfg:    cfg,
		store:  st,
		logger: logger,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}
	cleanup := func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}
	return e, cleanup, nil
}

func (e *env) engine() *allocation.Engine {
	return allocation.New(e.store,
		allocation.WithLogger(e.logger),
		allocation.WithTimeout(e.cfg.Allocation.Timeout.Std()),
	)
}

func (e *env) resolver() *correlation.Resolver {
	return correlation.NewResolver(e.store, e.logger)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
