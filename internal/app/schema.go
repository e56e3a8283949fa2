package app

import (
	"context"
	"fmt"

	"github.com/shandysiswandi/gootp/internal/pkg/dbpool"
)

// Applied at startup; every statement is safe to run again.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		login VARCHAR(64) NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'USER',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS otp_codes (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users (id),
		operation_id VARCHAR(128) NOT NULL,
		code VARCHAR(16) NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'ACTIVE',
		delivery_channel VARCHAR(16) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_otp_codes_operation_code ON otp_codes (operation_id, code)`,
	`CREATE INDEX IF NOT EXISTS idx_otp_codes_status_expires ON otp_codes (status, expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_otp_codes_user ON otp_codes (user_id)`,
	`CREATE TABLE IF NOT EXISTS otp_config (
		id SMALLINT PRIMARY KEY,
		length INT NOT NULL,
		expiration_time_ms INT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// ensureSchema creates the tables and indexes the service relies on.
func ensureSchema(ctx context.Context, pool *dbpool.Pool) error {
	lease, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("app: acquire connection for schema: %w", err)
	}
	defer lease.Release(ctx)

	for _, stmt := range schemaStatements {
		if _, err := lease.Conn().Exec(ctx, stmt); err != nil {
			return fmt.Errorf("app: apply schema statement: %w", err)
		}
	}

	return nil
}
