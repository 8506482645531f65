// Package db provides the PostgreSQL persistence layer for workflow state
// and inbound conversation messages.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool and implements workflow.Store.
// Connections are acquired per operation and released immediately; no
// operation holds one across an external call.
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Migrate creates the schema if it does not exist. Records are never deleted
// by the application; retention is an external concern.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS workflows (
			thread_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			conversation_transcript TEXT NOT NULL,
			briefing_md TEXT,
			strategy_and_plan_md TEXT,
			calendar_events JSONB,
			image_urls TEXT[] NOT NULL DEFAULT '{}',
			html_content TEXT,
			page_url TEXT,
			last_error TEXT,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS messages (
			message_id VARCHAR(64) PRIMARY KEY,
			thread_id VARCHAR(64) NOT NULL,
			phone_number VARCHAR(32) NOT NULL,
			role VARCHAR(12) NOT NULL,
			content TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_messages_thread
			ON messages (thread_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
