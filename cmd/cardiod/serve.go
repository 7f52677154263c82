package main

import (
	"context"
	"errors"
	"fmt"

	// Database drivers selectable through the config.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/datamonsterr/Cardio-sub000/cmd/cardiod/shared"
	"github.com/datamonsterr/Cardio-sub000/internal/config"
	"github.com/datamonsterr/Cardio-sub000/internal/server"
	"github.com/datamonsterr/Cardio-sub000/internal/store"
)

// ServeCmd runs the server until interrupted.
type ServeCmd struct {
	Config string `kong:"default='cardio.hcl',help='Path to the HCL configuration file'"`
	Debug  bool   `kong:"help='Force debug logging regardless of the config'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.Debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closeLog, err := shared.SetupLogger(cfg.Log)
	if err != nil {
		return err
	}
	if closeLog != nil {
		defer func() { _ = closeLog() }()
	}

	st, err := store.Open(cfg.Database.Driver, cfg.Database.Conninfo)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	logger.Info().
		Str("version", version).
		Str("addr", cfg.ListenAddress()).
		Str("driver", cfg.Database.Driver).
		Int("boot_tables", len(cfg.Tables)).
		Msg("Starting cardiod")

	ctx := shared.SetupSignalHandler(logger)
	srv := server.New(cfg, st, logger)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
