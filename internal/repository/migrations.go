package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Migrate applies the database schema. Safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	// Migration 1: users table with the modle JSONB document.
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			modle JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: index for admin tooling that scans recently active
	// players.
	_, err = pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_users_updated_at ON users(updated_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: users indexes created")

	return nil
}
