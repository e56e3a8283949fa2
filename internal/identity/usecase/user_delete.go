package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

type UserDeleteInput struct {
	UserID int64 `validate:"required"`
}

// UserDelete removes an account and its code records. Admin only; the ADMIN
// account itself cannot be deleted.
//
// Codes are purged before the account row goes away, so a failure between
// the two steps leaves an account without codes rather than codes without
// an account.
func (s *Usecase) UserDelete(ctx context.Context, in UserDeleteInput) error {
	ctx, span := s.startSpan(ctx, "UserDelete")
	defer span.End()

	if err := s.requireAdmin(ctx); err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	user, err := s.repoDB.GetUserByID(ctx, in.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		return goerror.NewBusiness("user not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user", "user_id", in.UserID, "error", err)
		return storageError(err)
	}

	if user.Role == entity.RoleAdmin {
		slog.WarnContext(ctx, "refusing to delete admin account", "user_id", in.UserID)
		return goerror.NewBusiness("administrator accounts cannot be deleted", goerror.CodeForbidden)
	}

	purged, err := s.purgeCodes(ctx, in.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to purge user codes", "user_id", in.UserID, "error", err)
		return storageError(err)
	}

	if _, err := s.repoDB.DeleteUser(ctx, in.UserID); err != nil {
		slog.ErrorContext(ctx, "failed to repo delete user", "user_id", in.UserID, "error", err)
		return storageError(err)
	}

	slog.InfoContext(ctx, "user deleted", "user_id", in.UserID, "codes_purged", purged)

	return nil
}
