package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

type LoginInput struct {
	Login    string `validate:"required"`
	Password string `validate:"required"`
}

type LoginOutput struct {
	AccessToken string
	Role        entity.Role
}

// Login verifies credentials and returns a signed access token carrying the
// account role.
func (s *Usecase) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	login := strings.TrimSpace(in.Login)
	cred, err := s.repoDB.GetUserByLogin(ctx, login)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "login", login)
		return nil, goerror.NewBusiness("invalid login or password", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by login", "login", login, "error", err)
		return nil, storageError(err)
	}

	if !s.bcrypt.Verify(cred.PasswordHash, in.Password) {
		slog.WarnContext(ctx, "password user account not match", "user_id", cred.ID)
		return nil, goerror.NewBusiness("invalid login or password", goerror.CodeUnauthorized)
	}

	token, err := s.jwt.Generate(cred.ID, cred.Login, cred.Role.String())
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access jwt token", "user_id", cred.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &LoginOutput{AccessToken: token, Role: cred.Role}, nil
}
