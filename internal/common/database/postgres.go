// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"insightx-workers/internal/common/config"
	apperrors "insightx-workers/internal/common/errors"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the connection pool the transaction dataset is read from.
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres creates a new PostgreSQL client
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// WaitReady pings until the server answers, doubling the delay between
// attempts. The dataset loader calls it before the initial full read.
func (c *PostgresClient) WaitReady(ctx context.Context, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = c.Ping(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return apperrors.NewDatabaseConnectionFailedError(fmt.Errorf("postgres not ready after %d attempts: %w", attempts, err))
}

// HasTable reports whether a table (optionally schema-qualified) is visible
// on the search path.
func (c *PostgresClient) HasTable(ctx context.Context, table string) (bool, error) {
	var exists bool
	if err := c.DB.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup table %s: %w", table, err)
	}
	return exists, nil
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
