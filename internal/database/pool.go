package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig defines connection pool settings
type PoolConfig struct {
	DSN             string
	MaxConns        int32         // Max open connections
	MinConns        int32         // Connections kept warm
	MaxConnLifetime time.Duration // Max connection lifetime
	MaxConnIdleTime time.Duration // Max idle time before close
	ConnectAttempts int           // Attempts before giving up at startup
}

// DefaultPoolConfig returns pool settings sized for the user store
func DefaultPoolConfig(dsn string) PoolConfig {
	return PoolConfig{
		DSN:             dsn,
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		ConnectAttempts: 5,
	}
}

// Connect opens a pool and waits until the database answers a ping,
// retrying with exponential backoff.
func Connect(ctx context.Context, cfg PoolConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var pool *pgxpool.Pool
	attempt := 0
	operation := func() error {
		attempt++
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return err
		}
		if err := HealthCheck(ctx, p); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newBackoff(), uint64(attempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		logger.Warn("database not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("retry_in", wait),
			slog.String("error", err.Error()),
		)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("connect database after %d attempts: %w", attempt, err)
	}

	logger.Info("database connected", slog.Int("attempts", attempt))
	return pool, nil
}

func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck verifies database connectivity
func HealthCheck(ctx context.Context, db Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database unhealthy: %w", err)
	}

	return nil
}
