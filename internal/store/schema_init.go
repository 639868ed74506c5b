package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS kv_entries (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS report_fingerprints (
		id         UUID PRIMARY KEY,
		report_id  UUID NOT NULL,
		user_id    TEXT NOT NULL,
		model_id   TEXT NOT NULL,
		scores     vector(5) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS report_fingerprints_user_idx ON report_fingerprints (user_id, created_at DESC)`,
}

// EnsureSchema creates the tables used by PostgresKV and FingerprintStore.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
