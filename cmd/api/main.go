package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kurihiro0119/github-skill-analytics/internal/analysis"
	"github.com/kurihiro0119/github-skill-analytics/internal/api"
	"github.com/kurihiro0119/github-skill-analytics/internal/auth"
	"github.com/kurihiro0119/github-skill-analytics/internal/collector"
	"github.com/kurihiro0119/github-skill-analytics/internal/config"
	"github.com/kurihiro0119/github-skill-analytics/internal/logging"
	"github.com/kurihiro0119/github-skill-analytics/internal/storage"
	"github.com/kurihiro0119/github-skill-analytics/internal/storage/postgres"
	"github.com/kurihiro0119/github-skill-analytics/internal/storage/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	// Initialize storage
	var store storage.Storage
	switch cfg.StorageType {
	case "postgres":
		store, err = postgres.NewPostgresStorage(cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("failed to initialize PostgreSQL storage: %w", err)
		}
	default:
		store, err = sqlite.NewSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to initialize SQLite storage: %w", err)
		}
	}
	defer store.Close()

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return err
	}

	opts := collector.DefaultOptions()
	opts.BaseURL = cfg.GitHubAPIURL
	opts.HTTPTimeout = cfg.GitHubHTTPTimeout
	opts.StatsAttempts = cfg.GitHubStatsAttempts
	opts.StatsDelay = cfg.GitHubStatsDelay
	opts.Logger = logger

	service := analysis.NewService(store, collector.NewFactory(opts), analysis.WithLogger(logger))
	handler := api.NewHandler(service)
	router := api.SetupRoutes(handler, tokens, logger)

	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting API server", slog.String("addr", addr), slog.String("storage", cfg.StorageType))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	// Analyses can take minutes while stats are polled
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
