package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/deliverypulse/engine/internal/api"
	"github.com/deliverypulse/engine/internal/api/handlers"
	"github.com/deliverypulse/engine/internal/normalize"
	"github.com/deliverypulse/engine/internal/queue/tasks"
	"github.com/deliverypulse/engine/internal/repository"
	"github.com/deliverypulse/engine/internal/services"
	"github.com/deliverypulse/engine/pkg/config"
	"github.com/deliverypulse/engine/pkg/database"
	"github.com/deliverypulse/engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("starting snapshot engine api",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
		zap.Bool("async_imports", cfg.AsyncImports()),
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.Open(ctx, cfg.DatabaseURL, database.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		Verbose:      cfg.AppEnv == "development",
		Logger:       log,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	log.Info("database connected")

	var aliases map[string]string
	if cfg.AliasesFile != "" {
		aliases, err = normalize.LoadAliases(cfg.AliasesFile)
		if err != nil {
			log.Fatal("failed to load header aliases", zap.Error(err))
		}
		log.Info("header aliases loaded", zap.String("file", cfg.AliasesFile), zap.Int("count", len(aliases)))
	}

	store := repository.NewStore(db)
	imports := services.NewImportService(store, normalize.New(aliases))
	projects := services.NewProjectService(store)
	indicators := services.NewIndicatorService(store)
	reports := services.NewReportService(store)

	// Imports run inline unless Redis is configured.
	var queue handlers.ImportQueue
	if cfg.AsyncImports() {
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer client.Close()
		queue = tasks.NewEnqueuer(client, cfg.ImportTimeout)
	}

	router := api.NewRouter(api.Dependencies{
		HealthHandler:   handlers.NewHealthHandler(store),
		ImportsHandler:  handlers.NewImportsHandler(imports, queue, cfg.MaxUploadBytes(), cfg.ImportTimeout),
		ProjectsHandler: handlers.NewProjectsHandler(projects, indicators),
		ReportsHandler:  handlers.NewReportsHandler(reports, projects),
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.ImportTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
