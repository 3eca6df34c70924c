package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS noshow_alerts (
	reservation_id   TEXT PRIMARY KEY,
	customer_name    TEXT NOT NULL,
	customer_phone   TEXT,
	reservation_time TEXT NOT NULL DEFAULT '',
	party_size       INTEGER NOT NULL,
	risk_score       INTEGER NOT NULL,
	auto_release_at  TIMESTAMPTZ NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	resolved_at      TIMESTAMPTZ,
	resolution       TEXT
);

CREATE TABLE IF NOT EXISTS noshow_actions (
	id             UUID PRIMARY KEY,
	reservation_id TEXT NOT NULL UNIQUE,
	action         TEXT NOT NULL,
	notes          TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL
);`

// EnsureSchema creates the two tables this service owns when they are missing.
func (d *DB) EnsureSchema(ctx context.Context) error {
	if _, err := d.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func (d *DB) Close() {
	d.Pool.Close()
}
