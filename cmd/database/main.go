package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/api"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/audit"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/config"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/database"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/mlclient"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/repository"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}

	logger := config.NewLogger(cfg.Environment, "database")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, pool, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	mlConfig := mlclient.DefaultConfig()
	mlConfig.BaseURL = cfg.MLServiceURL
	mlConfig.Timeout = cfg.MLTimeout
	mlConfig.RetryCount = cfg.MLRetryCount
	mlConfig.Logger = logger
	ml := mlclient.NewClient(mlConfig)

	svc := service.NewUserService(users, ml, audit.NewSlogLogger(logger), logger).
		WithThreshold(cfg.DefaultThreshold)

	health := handler.NewHealthHandler("Database service is running", map[string]string{
		"store_backend":  cfg.StoreBackend,
		"ml_service_url": cfg.MLServiceURL,
	}, svc.Health)

	router := api.NewDatabaseRouter(logger, &api.DatabaseDependencies{
		Users:  svc,
		Health: health,
		RateLimit: middleware.RateLimiterConfig{
			Max:    cfg.RateLimitMax,
			Window: time.Minute,
		},
	})
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("starting database server",
			"addr", addr,
			"env", cfg.Environment,
			"store_backend", cfg.StoreBackend,
			"ml_service_url", cfg.MLServiceURL,
		)
		errChan <- router.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server...")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown timed out")
	}

	logger.Info("server stopped gracefully")
	return nil
}

// openStore returns the user store selected by STORE_BACKEND. The pool is nil
// for the in-memory backend.
func openStore(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (service.UserRepositoryInterface, *pgxpool.Pool, error) {
	if cfg.StoreBackend == "memory" {
		logger.Warn("using in-memory user store: enrolled users are lost on restart")
		return repository.NewMemoryUserRepository(), nil, nil
	}

	poolCfg := database.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.ConnectAttempts = cfg.DBConnectAttempts

	pool, err := database.Connect(ctx, poolCfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := database.MigrateUp(pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database ready", "database", pool.Config().ConnConfig.Database)

	return repository.NewUserRepository(pool), pool, nil
}
