package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gootp/internal/identity/entity"
)

type UserListRow struct {
	ID        int64
	Login     string
	Role      entity.Role
	CreatedAt time.Time
}

type UserListOutput struct {
	Users []UserListRow
}

// UserList returns every non-admin account. Admin only.
func (s *Usecase) UserList(ctx context.Context) (*UserListOutput, error) {
	ctx, span := s.startSpan(ctx, "UserList")
	defer span.End()

	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	users, err := s.repoDB.ListUsersExcludingRole(ctx, entity.RoleAdmin)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list users", "error", err)
		return nil, storageError(err)
	}

	rows := lo.Map(users, func(u entity.User, _ int) UserListRow {
		return UserListRow{
			ID:        u.ID,
			Login:     u.Login,
			Role:      u.Role,
			CreatedAt: u.CreatedAt,
		}
	})

	return &UserListOutput{Users: rows}, nil
}
