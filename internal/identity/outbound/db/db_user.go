package db

import (
	"context"

	"github.com/shandysiswandi/gootp/internal/identity/entity"
)

// CreateUser inserts an account. A duplicate login surfaces as
// goerror.ErrConflict through the unique index.
func (s *DB) CreateUser(ctx context.Context, login, passwordHash string, role entity.Role) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer func() { s.endSpan(span, err) }()

	lease, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	const query = `
		INSERT INTO users (login, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	user := entity.User{Login: login, Role: role}
	row := lease.Conn().QueryRow(ctx, query, login, passwordHash, role.String())
	if err = row.Scan(&user.ID, &user.CreatedAt); err != nil {
		return nil, s.mapError(err)
	}

	return &user, nil
}

// GetUserByLogin returns the credential row for a login attempt.
func (s *DB) GetUserByLogin(ctx context.Context, login string) (_ *entity.UserCredential, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByLogin")
	defer func() { s.endSpan(span, err) }()

	lease, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	const query = `SELECT id, login, password_hash, role FROM users WHERE login = $1`

	var (
		cred entity.UserCredential
		role string
	)

	row := lease.Conn().QueryRow(ctx, query, login)
	if err = row.Scan(&cred.ID, &cred.Login, &cred.PasswordHash, &role); err != nil {
		return nil, s.mapError(err)
	}

	cred.Role = entity.RoleFromString(role)

	return &cred, nil
}

// GetUserByID returns the account without credential material.
func (s *DB) GetUserByID(ctx context.Context, id int64) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByID")
	defer func() { s.endSpan(span, err) }()

	lease, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	const query = `SELECT id, login, role, created_at FROM users WHERE id = $1`

	var (
		user entity.User
		role string
	)

	row := lease.Conn().QueryRow(ctx, query, id)
	if err = row.Scan(&user.ID, &user.Login, &role, &user.CreatedAt); err != nil {
		return nil, s.mapError(err)
	}

	user.Role = entity.RoleFromString(role)

	return &user, nil
}

// ListUsersExcludingRole returns every account not holding the given role,
// newest first.
func (s *DB) ListUsersExcludingRole(ctx context.Context, role entity.Role) (_ []entity.User, err error) {
	ctx, span := s.startSpan(ctx, "ListUsersExcludingRole")
	defer func() { s.endSpan(span, err) }()

	lease, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	const query = `SELECT id, login, role, created_at FROM users WHERE role <> $1 ORDER BY created_at DESC`

	rows, err := lease.Conn().Query(ctx, query, role.String())
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	var users []entity.User
	for rows.Next() {
		var (
			user entity.User
			r    string
		)
		if err = rows.Scan(&user.ID, &user.Login, &r, &user.CreatedAt); err != nil {
			return nil, s.mapError(err)
		}
		user.Role = entity.RoleFromString(r)
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, s.mapError(err)
	}

	return users, nil
}

// RoleExists reports whether any account holds the given role.
func (s *DB) RoleExists(ctx context.Context, role entity.Role) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "RoleExists")
	defer func() { s.endSpan(span, err) }()

	lease, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer lease.Release(ctx)

	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`

	var exists bool
	if err = lease.Conn().QueryRow(ctx, query, role.String()).Scan(&exists); err != nil {
		return false, s.mapError(err)
	}

	return exists, nil
}

// DeleteUser removes the account row and reports whether it existed.
func (s *DB) DeleteUser(ctx context.Context, id int64) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "DeleteUser")
	defer func() { s.endSpan(span, err) }()

	lease, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer lease.Release(ctx)

	const query = `DELETE FROM users WHERE id = $1`

	tag, err := lease.Conn().Exec(ctx, query, id)
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() > 0, nil
}
