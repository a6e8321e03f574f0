// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"beacon-network/internal/common/config"

	_ "github.com/lib/pq"
)

const defaultAuditConnLifetime = 30 * time.Minute

// PostgresClient holds the pool the audit store writes request logs through.
type PostgresClient struct {
	DB       *sql.DB
	database string
}

// NewPostgres opens the audit pool. Idle connections are capped by the open
// limit and recycled after half their lifetime.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database %s: %w", cfg.Database, err)
	}

	idle := cfg.MaxIdle
	if cfg.MaxConnections > 0 && idle > cfg.MaxConnections {
		idle = cfg.MaxConnections
	}
	lifetime := time.Duration(cfg.ConnMaxLifetime) * time.Second
	if lifetime <= 0 {
		lifetime = defaultAuditConnLifetime
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(lifetime)
	db.SetConnMaxIdleTime(lifetime / 2)

	return &PostgresClient{DB: db, database: cfg.Database}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("audit database %s: %w", c.database, err)
	}
	return nil
}

// PoolFields describes the pool for startup and shutdown logs.
func (c *PostgresClient) PoolFields() map[string]interface{} {
	s := c.DB.Stats()
	return map[string]interface{}{
		"store":    "postgres",
		"database": c.database,
		"maxOpen":  s.MaxOpenConnections,
		"open":     s.OpenConnections,
		"inUse":    s.InUse,
		"idle":     s.Idle,
		"waits":    s.WaitCount,
	}
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
