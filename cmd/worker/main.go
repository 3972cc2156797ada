package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/deliverypulse/engine/internal/normalize"
	"github.com/deliverypulse/engine/internal/queue/tasks"
	"github.com/deliverypulse/engine/internal/repository"
	"github.com/deliverypulse/engine/internal/services"
	"github.com/deliverypulse/engine/pkg/config"
	"github.com/deliverypulse/engine/pkg/database"
	"github.com/deliverypulse/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if !cfg.AsyncImports() {
		log.Fatal("REDIS_ADDR is required for the import worker")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	_ = rdb.Close()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		},
		asynq.Config{
			Concurrency: cfg.AsynqConcurrency,
			Logger:      log.Sugar(),
		},
	)

	mux := asynq.NewServeMux()

	// Initialize DB and services for task handlers
	ctx := context.Background()
	db, err := database.Open(ctx, cfg.DatabaseURL, database.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		Logger:       log,
	})
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}

	var aliases map[string]string
	if cfg.AliasesFile != "" {
		if aliases, err = normalize.LoadAliases(cfg.AliasesFile); err != nil {
			log.Fatal("failed to load header aliases", zap.Error(err))
		}
	}

	imports := services.NewImportService(repository.NewStore(db), normalize.New(aliases))
	tasks.NewImportTaskHandler(imports).Register(mux)

	errCh := make(chan error, 1)
	go func() {
		log.Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("worker stopped with error", zap.Error(err))
	}

	// Let in-flight imports finish their transaction.
	srv.Shutdown()
}
