package db

import (
	"context"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
)

// policyID keys the single logical policy row.
const policyID = 1

// GetPolicy reads the deployment policy, creating it from the given defaults
// when absent.
//
// The create path is insert-on-conflict-do-nothing followed by a select, so
// two callers hitting an empty table concurrently still end up with exactly
// one row and both read the same values.
func (s *DB) GetPolicy(ctx context.Context, defaults entity.Policy) (_ *entity.Policy, err error) {
	ctx, span := s.startSpan(ctx, "GetPolicy")
	defer func() { s.endSpan(span, err) }()

	lease, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	const upsert = `
		INSERT INTO otp_config (id, length, expiration_time_ms)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`

	if _, err = lease.Conn().Exec(ctx, upsert, policyID, defaults.Length, defaults.ExpirationMs); err != nil {
		return nil, s.mapError(err)
	}

	const query = `SELECT length, expiration_time_ms, updated_at FROM otp_config WHERE id = $1`

	var policy entity.Policy
	row := lease.Conn().QueryRow(ctx, query, policyID)
	if err = row.Scan(&policy.Length, &policy.ExpirationMs, &policy.UpdatedAt); err != nil {
		return nil, s.mapError(err)
	}

	return &policy, nil
}

// UpdatePolicy overwrites the policy row, creating it when absent.
func (s *DB) UpdatePolicy(ctx context.Context, policy entity.Policy) (err error) {
	ctx, span := s.startSpan(ctx, "UpdatePolicy")
	defer func() { s.endSpan(span, err) }()

	lease, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release(ctx)

	const query = `
		INSERT INTO otp_config (id, length, expiration_time_ms)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET length = EXCLUDED.length,
		    expiration_time_ms = EXCLUDED.expiration_time_ms,
		    updated_at = CURRENT_TIMESTAMP`

	if _, err = lease.Conn().Exec(ctx, query, policyID, policy.Length, policy.ExpirationMs); err != nil {
		return s.mapError(err)
	}

	return nil
}
