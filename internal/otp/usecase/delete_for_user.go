package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

type DeleteForUserInput struct {
	UserID int64 `validate:"required"`
}

type DeleteForUserOutput struct {
	Deleted int64
}

// DeleteForUser removes every code record owned by the user, whatever its
// status. Called before an account is removed so no orphan codes survive.
func (s *Usecase) DeleteForUser(ctx context.Context, in DeleteForUserInput) (*DeleteForUserOutput, error) {
	ctx, span := s.startSpan(ctx, "DeleteForUser")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	deleted, err := s.repoDB.DeleteCodesByUser(ctx, in.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete user codes", "user_id", in.UserID, "error", err)
		return nil, storageError(err)
	}

	slog.InfoContext(ctx, "user codes removed", "user_id", in.UserID, "count", deleted)

	return &DeleteForUserOutput{Deleted: deleted}, nil
}
