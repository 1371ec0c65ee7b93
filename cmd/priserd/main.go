package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/addyspiller/prisere/internal/async"
	"github.com/addyspiller/prisere/internal/auth"
	"github.com/addyspiller/prisere/internal/common"
	"github.com/addyspiller/prisere/internal/export"
	"github.com/addyspiller/prisere/internal/extract"
	"github.com/addyspiller/prisere/internal/llm/openai"
	"github.com/addyspiller/prisere/internal/pipeline"
	"github.com/addyspiller/prisere/internal/repository"
	"github.com/addyspiller/prisere/internal/server"
	"github.com/addyspiller/prisere/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.Migrate(ctx, pool, logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
	if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}

	blobs, err := storage.NewMinioStore(cfg.Storage, logger)
	if err != nil {
		logger.Error("storage client failed", "error", err)
		os.Exit(1)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		logger.Error("storage bucket check failed", "error", err)
		os.Exit(1)
	}

	engine := openai.NewClient(openai.Config{
		APIKey:      cfg.Engine.APIKey,
		BaseURL:     cfg.Engine.BaseURL,
		Model:       cfg.Engine.Model,
		Temperature: cfg.Engine.Temperature,
		MaxTokens:   cfg.Engine.MaxTokens,
		Timeout:     cfg.Engine.Timeout,
	}, logger)

	extractor := extract.NewPopplerExtractor(extract.DefaultPopplerConfig(), logger)

	jobs := repository.NewAnalysisJobRepository(pool, logger)
	results := repository.NewAnalysisResultRepository(pool, logger)

	processor := pipeline.NewProcessor(jobs, blobs, extractor, engine, logger)
	dispatcher := async.NewDispatcher(processor, cfg.Jobs.Timeout, logger)

	var provider auth.Provider
	switch cfg.Auth.Mode {
	case "jwt":
		provider = auth.NewJWTProvider(cfg.Auth.JWKSURL, cfg.Auth.Issuer, cfg.Auth.JWKSRefresh, logger)
	default:
		provider = auth.NewStaticProvider(cfg.Auth.StaticUserID)
		logger.Warn("auth running in static mode", "user_id", cfg.Auth.StaticUserID)
	}

	srv := server.New(server.Deps{
		Jobs:       jobs,
		Results:    results,
		Blobs:      blobs,
		Dispatcher: dispatcher,
		Provider:   provider,
		Exporter:   export.NewService(jobs, logger),
		HealthPing: func(ctx context.Context) error {
			return repository.HealthCheck(ctx, pool, 3*time.Second, logger)
		},
		Storage: cfg.Storage,
		Logger:  logger,
	}, cfg.Server)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(cfg.Server.Addr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server failed", "error", err)
	}

	if err := srv.Shutdown(10 * time.Second); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	dispatcher.Shutdown(cfg.Jobs.Timeout)
	logger.Info("stopped")
}
