package main

import (
	"context"
	"fmt"
	"os"

	"github.com/deliverypulse/engine/internal/migrations"
	"github.com/deliverypulse/engine/pkg/config"
	"github.com/deliverypulse/engine/pkg/database"
	"github.com/deliverypulse/engine/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.Open(context.Background(), cfg.DatabaseURL, database.Options{
		MaxOpenConns: 1,
		Verbose:      true,
		Logger:       log,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := migrations.Run(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
