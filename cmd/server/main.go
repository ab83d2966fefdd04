package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deepspear/internal/server/api"
	"deepspear/internal/server/config"
	"deepspear/internal/server/database"
	"deepspear/internal/server/ml"
	"deepspear/internal/server/service"
	"deepspear/internal/server/storage"
)

func main() {
	// Structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg := config.Load()
	slog.Info("configuration loaded",
		"port", cfg.Port,
		"upload_dir", cfg.UploadDir,
		"max_upload_size", cfg.MaxUploadSize,
		"api_prefix", cfg.APIPrefix,
		"inference_url", cfg.InferenceURL,
		"upload_retention", cfg.UploadRetention,
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations complete")

	// Initialize upload storage
	store := storage.NewFileSystemStore(cfg.UploadDir, cfg.AllowedExtensions)
	if err := store.EnsureDir(); err != nil {
		slog.Error("failed to initialize upload storage", "error", err)
		os.Exit(1)
	}
	slog.Info("upload storage initialized", "path", cfg.UploadDir)

	// Pick the classifier: remote delegation when an endpoint is configured,
	// local stub otherwise.
	var classifier ml.Classifier
	if cfg.InferenceURL != "" {
		classifier = ml.NewRemoteClassifier(cfg.InferenceURL, cfg.InferenceTimeout)
		slog.Info("using remote classifier", "url", cfg.InferenceURL, "timeout", cfg.InferenceTimeout)
	} else {
		classifier = ml.NewStubClassifier()
		slog.Info("no inference endpoint configured, using stub classifier")
	}

	// Initialize repository and service
	repo := database.NewRepository(db)
	svc := service.NewDetectionService(repo, store, classifier, cfg)

	// Start the retention sweeper only when a retention period is set;
	// the default deployment retains uploaded files.
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	var sweeper *storage.RetentionService
	if cfg.UploadRetention > 0 {
		sweeper = storage.NewRetentionService(store, cfg.UploadRetention, cfg.CleanupInterval)
		sweeper.Start(sweepCtx)
	}

	// Setup HTTP router
	handler := api.NewHandler(svc, db)
	e := api.SetupRouter(handler, cfg)

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		slog.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil {
			slog.Info("server stopped", "reason", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down", "signal", sig)

	// Stop accepting new requests, finish in-flight with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Stop the retention sweeper
	sweepCancel()
	if sweeper != nil {
		sweeper.Wait()
	}

	slog.Info("server exited cleanly")
}
