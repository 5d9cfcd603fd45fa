// Package store persists valuation runs: PostgreSQL when a database URL is
// configured, JSON files under the data root otherwise.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phuslu/log"
)

var (
	pool *pgxpool.Pool
	once sync.Once
)

// InitDB initializes the shared connection pool and creates the schema.
func InitDB(ctx context.Context, dbURL string) error {
	var err error
	once.Do(func() {
		if dbURL == "" {
			err = errors.New("database url not set")
			return
		}

		config, parseErr := pgxpool.ParseConfig(dbURL)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", parseErr)
			return
		}

		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return
		}
		if err = pool.Ping(ctx); err != nil {
			pool.Close()
			pool = nil
			err = fmt.Errorf("failed to reach database: %w", err)
			return
		}
		if err = EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			pool = nil
		}
	})
	if err == nil && pool != nil {
		log.Info().Msg("[STORE] database ready")
	}
	return err
}

// GetPool returns the database connection pool, or nil before InitDB succeeded.
func GetPool() *pgxpool.Pool {
	return pool
}

// Close closes the database connection pool
func Close() {
	if pool != nil {
		pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS valuation_runs (
	id          UUID PRIMARY KEY,
	ticker      TEXT NOT NULL,
	params      JSONB NOT NULL,
	result      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS valuation_runs_ticker_created ON valuation_runs (ticker, created_at DESC);
`

// EnsureSchema creates the tables used by this package.
func EnsureSchema(ctx context.Context, p *pgxpool.Pool) error {
	if _, err := p.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
