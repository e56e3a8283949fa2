package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"math/big"
	"time"

	"github.com/shandysiswandi/gootp/internal/otp/delivery"
	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/clock"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/jwt"
	"github.com/shandysiswandi/gootp/internal/pkg/uid"
	"github.com/shandysiswandi/gootp/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type repoDB interface {
	SaveCode(ctx context.Context, code entity.Code) (*entity.Code, error)
	GetCodeByOperationAndValue(ctx context.Context, operationID, value string) (*entity.Code, error)
	UpdateCodeStatus(ctx context.Context, id int64, to entity.Status) (bool, error)
	MarkAllExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteCodesByUser(ctx context.Context, userID int64) (int64, error)

	GetPolicy(ctx context.Context, defaults entity.Policy) (*entity.Policy, error)
	UpdatePolicy(ctx context.Context, policy entity.Policy) error
}

type identityStore interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
}

type channelRegistry interface {
	Channel(ctx context.Context, kind entity.Channel) (delivery.Channel, error)
}

type Usecase struct {
	repoDB        repoDB
	users         identityStore
	registry      channelRegistry
	validator     validator.Validator
	uuid          uid.StringID
	clock         clock.Clocker
	ins           instrument.Instrumentation
	defaultPolicy entity.Policy
}

type Dependency struct {
	RepoDB        repoDB
	Users         identityStore
	Registry      channelRegistry
	Validator     validator.Validator
	UUID          uid.StringID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	DefaultPolicy entity.Policy
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		users:         dep.Users,
		registry:      dep.Registry,
		validator:     dep.Validator,
		uuid:          dep.UUID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		defaultPolicy: dep.DefaultPolicy,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.usecase").Start(ctx, name)
}

// storageError keeps already structured errors intact and wraps the rest.
func storageError(err error) error {
	var ge *goerror.Error
	if errors.As(err, &ge) {
		return err
	}

	return goerror.NewServer(err)
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

const codeDigits = "0123456789"

// generateCode draws each digit from crypto/rand.
func generateCode(length int) (string, error) {
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeDigits))))
		if err != nil {
			return "", err
		}
		buf[i] = codeDigits[n.Int64()]
	}

	return string(buf), nil
}
