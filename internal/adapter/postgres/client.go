package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS harvested_records (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	profile_url    TEXT NOT NULL,
	content        TEXT NOT NULL,
	post_url       TEXT NOT NULL,
	group_images   TEXT[] NOT NULL DEFAULT '{}',
	profile_images TEXT[] NOT NULL DEFAULT '{}',
	create_at      TEXT NOT NULL DEFAULT '',
	harvested_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS failed_forwards (
	record_id              TEXT PRIMARY KEY,
	failure_reason         TEXT NOT NULL,
	http_status_code       INTEGER NOT NULL DEFAULT 0,
	last_attempt_timestamp TIMESTAMPTZ NOT NULL,
	attempt_count          INTEGER NOT NULL DEFAULT 1
);
`

// Connect opens a pool, verifies it and creates the tables if needed.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return pool, nil
}
