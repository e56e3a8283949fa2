package db

import "context"

// UserExists reports whether the account a code would be issued for is
// present.
func (s *DB) UserExists(ctx context.Context, userID int64) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "UserExists")
	defer func() { s.endSpan(span, err) }()

	lease, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer lease.Release(ctx)

	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err = lease.Conn().QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, s.mapError(err)
	}

	return exists, nil
}
