package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/hash"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/jwt"
	"github.com/shandysiswandi/gootp/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type repoDB interface {
	CreateUser(ctx context.Context, login, passwordHash string, role entity.Role) (*entity.User, error)
	GetUserByLogin(ctx context.Context, login string) (*entity.UserCredential, error)
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
	ListUsersExcludingRole(ctx context.Context, role entity.Role) ([]entity.User, error)
	RoleExists(ctx context.Context, role entity.Role) (bool, error)
	DeleteUser(ctx context.Context, id int64) (bool, error)
}

// PurgeFunc removes every code record owned by the user and returns the
// removed count. Runs before the account itself is deleted.
type PurgeFunc func(ctx context.Context, userID int64) (int64, error)

type Usecase struct {
	repoDB     repoDB
	purgeCodes PurgeFunc
	bcrypt     hash.Hash
	jwt        jwt.JWT
	validator  validator.Validator
	ins        instrument.Instrumentation
}

type Dependency struct {
	RepoDB     repoDB
	PurgeCodes PurgeFunc
	Bcrypt     hash.Hash
	JWT        jwt.JWT
	Validator  validator.Validator
	Instrument instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:     dep.RepoDB,
		purgeCodes: dep.PurgeCodes,
		bcrypt:     dep.Bcrypt,
		jwt:        dep.JWT,
		validator:  dep.Validator,
		ins:        dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

func (s *Usecase) requireAdmin(ctx context.Context) error {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	if !clm.IsAdmin() {
		slog.WarnContext(ctx, "non-admin attempted admin operation", "user_id", clm.UserID)
		return goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	return nil
}

// storageError keeps already structured errors intact and wraps the rest.
func storageError(err error) error {
	var ge *goerror.Error
	if errors.As(err, &ge) {
		return err
	}

	return goerror.NewServer(err)
}
