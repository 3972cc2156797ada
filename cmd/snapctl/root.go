package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deliverypulse/engine/internal/migrations"
	"github.com/deliverypulse/engine/internal/normalize"
	"github.com/deliverypulse/engine/internal/repository"
	"github.com/deliverypulse/engine/internal/services"
	"github.com/deliverypulse/engine/pkg/config"
	"github.com/deliverypulse/engine/pkg/database"
	"github.com/deliverypulse/engine/pkg/logger"
)

// app holds the services shared by every subcommand.
type app struct {
	log        *zap.Logger
	imports    services.ImportService
	indicators services.IndicatorService
	out        io.Writer
	json       bool
}

type ctxKey struct{}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "snapctl",
		Short: "Import and inspect weekly project snapshots",
		Long: `snapctl loads weekly spreadsheet extracts into the snapshot store and
reports per-project indicators and metric series.

Configuration comes from the same environment variables as the API
(DATABASE_URL, LOG_LEVEL, ALIASES_FILE, ...).`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	root.PersistentFlags().String("database-url", "", "Override DATABASE_URL")
	root.PersistentFlags().Bool("migrate", false, "Create or upgrade the schema before running")
	root.PersistentFlags().Bool("json", false, "Output in JSON format")

	root.AddCommand(importCmd(), indicatorsCmd(), seriesCmd())
	return root
}

func setup(cmd *cobra.Command, _ []string) error {
	if dsn, _ := cmd.Flags().GetString("database-url"); dsn != "" {
		if err := os.Setenv("DATABASE_URL", dsn); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.InitWriter(cmd.ErrOrStderr(), cfg.LogLevel, "console")
	if err != nil {
		return err
	}

	db, err := database.Open(cmd.Context(), cfg.DatabaseURL, database.Options{MaxOpenConns: 4, Logger: log})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := migrations.Run(db); err != nil {
			return err
		}
	}

	var aliases map[string]string
	if cfg.AliasesFile != "" {
		if aliases, err = normalize.LoadAliases(cfg.AliasesFile); err != nil {
			return err
		}
	}

	store := repository.NewStore(db)
	asJSON, _ := cmd.Flags().GetBool("json")
	a := &app{
		log:        log,
		imports:    services.NewImportService(store, normalize.New(aliases)),
		indicators: services.NewIndicatorService(store),
		out:        cmd.OutOrStdout(),
		json:       asJSON,
	}
	cmd.SetContext(withApp(cmd.Context(), a))
	return nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
