package db

import (
	"context"
	"time"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
)

// SaveCode inserts a new code record and fills in the server-assigned
// identity and creation timestamp.
func (s *DB) SaveCode(ctx context.Context, code entity.Code) (_ *entity.Code, err error) {
	ctx, span := s.startSpan(ctx, "SaveCode")
	defer func() { s.endSpan(span, err) }()

	lease, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	const query = `
		INSERT INTO otp_codes (user_id, operation_id, code, status, delivery_channel, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	row := lease.Conn().QueryRow(ctx, query,
		code.UserID,
		code.OperationID,
		code.Value,
		code.Status.String(),
		code.Channel.String(),
		code.ExpiresAt,
	)
	if err = row.Scan(&code.ID, &code.CreatedAt); err != nil {
		return nil, s.mapError(err)
	}

	return &code, nil
}

// GetCodeByOperationAndValue matches the operation id and the code exactly.
func (s *DB) GetCodeByOperationAndValue(ctx context.Context, operationID, value string) (_ *entity.Code, err error) {
	ctx, span := s.startSpan(ctx, "GetCodeByOperationAndValue")
	defer func() { s.endSpan(span, err) }()

	lease, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	const query = `
		SELECT id, user_id, operation_id, code, status, delivery_channel, created_at, expires_at
		FROM otp_codes
		WHERE operation_id = $1 AND code = $2`

	var (
		code    entity.Code
		status  string
		channel string
	)

	row := lease.Conn().QueryRow(ctx, query, operationID, value)
	err = row.Scan(
		&code.ID,
		&code.UserID,
		&code.OperationID,
		&code.Value,
		&status,
		&channel,
		&code.CreatedAt,
		&code.ExpiresAt,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	code.Status = entity.Status(status)
	code.Channel = entity.ChannelFromString(channel)

	return &code, nil
}

// UpdateCodeStatus transitions a record out of ACTIVE.
//
// The write is conditioned on the row still being ACTIVE, so concurrent
// validators racing on the same record get at most one winner; the returned
// bool reports whether this call took the transition.
func (s *DB) UpdateCodeStatus(ctx context.Context, id int64, to entity.Status) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "UpdateCodeStatus")
	defer func() { s.endSpan(span, err) }()

	lease, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer lease.Release(ctx)

	const query = `UPDATE otp_codes SET status = $1 WHERE id = $2 AND status = $3`

	tag, err := lease.Conn().Exec(ctx, query, to.String(), id, entity.StatusActive.String())
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkAllExpired flips every ACTIVE row whose expiry is strictly before now
// to EXPIRED in one statement and returns the affected count.
//
// Calling it again with no newly stale rows changes nothing.
func (s *DB) MarkAllExpired(ctx context.Context, now time.Time) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "MarkAllExpired")
	defer func() { s.endSpan(span, err) }()

	lease, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer lease.Release(ctx)

	const query = `UPDATE otp_codes SET status = $1 WHERE status = $2 AND expires_at < $3`

	tag, err := lease.Conn().Exec(ctx, query,
		entity.StatusExpired.String(),
		entity.StatusActive.String(),
		now,
	)
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}

// DeleteCodesByUser removes every code owned by the user and returns the
// deleted count. Deleting an already clean user is a no-op.
func (s *DB) DeleteCodesByUser(ctx context.Context, userID int64) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteCodesByUser")
	defer func() { s.endSpan(span, err) }()

	lease, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer lease.Release(ctx)

	const query = `DELETE FROM otp_codes WHERE user_id = $1`

	tag, err := lease.Conn().Exec(ctx, query, userID)
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}
