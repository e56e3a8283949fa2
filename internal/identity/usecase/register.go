package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

type RegisterInput struct {
	Login    string `validate:"required,min=3,max=64"`
	Password string `validate:"required,password"`
	Role     string
}

type RegisterOutput struct {
	UserID int64
	Role   entity.Role
}

// Register creates an account. Requesting the ADMIN role succeeds only while
// no administrator exists yet; after that the role silently stays off limits
// and registration fails with a conflict.
func (s *Usecase) Register(ctx context.Context, in RegisterInput) (*RegisterOutput, error) {
	ctx, span := s.startSpan(ctx, "Register")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	login := strings.TrimSpace(in.Login)
	role := entity.RoleFromString(in.Role)

	if role == entity.RoleAdmin {
		taken, err := s.repoDB.RoleExists(ctx, entity.RoleAdmin)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo check admin presence", "error", err)
			return nil, storageError(err)
		}
		if taken {
			slog.WarnContext(ctx, "second admin registration rejected", "login", login)
			return nil, goerror.NewBusiness("administrator already exists", goerror.CodeConflict)
		}
	}

	passwordHash, err := s.bcrypt.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, goerror.NewServer(err)
	}

	user, err := s.repoDB.CreateUser(ctx, login, string(passwordHash), role)
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "login already taken", "login", login)
		return nil, goerror.NewBusiness("login already taken", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create user", "login", login, "error", err)
		return nil, storageError(err)
	}

	slog.InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role.String())

	return &RegisterOutput{UserID: user.ID, Role: user.Role}, nil
}
