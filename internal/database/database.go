// Package database owns the PostgreSQL pool and its schema migrations.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	applicationName = "palace"

	// The document store's change listener holds one connection for the
	// life of the process.
	minConns = 1
	maxConns = 8
)

// DB wraps the pgxpool.Pool shared by the document store, the identity
// provider and the migration runner.
type DB struct {
	pool *pgxpool.Pool
	url  string
}

// New connects to databaseURL and verifies the connection. Pool limits are
// raised to at least minConns and maxConns.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	tunePool(poolCfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	slog.Info("connected to database",
		"host", poolCfg.ConnConfig.Host,
		"database", poolCfg.ConnConfig.Database,
		"maxConns", poolCfg.MaxConns,
	)
	return &DB{pool: pool, url: databaseURL}, nil
}

func tunePool(cfg *pgxpool.Config) {
	if cfg.MinConns < minConns {
		cfg.MinConns = minConns
	}
	// pgxpool defaults MaxConns to max(4, NumCPU); keep room beside the listener.
	if cfg.MaxConns < maxConns {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Ping verifies the database connection is alive. It backs the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Pool returns the underlying pool for the store and identity repositories.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}
