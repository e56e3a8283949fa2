package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

type ValidateInput struct {
	OperationID string `validate:"required"`
	Code        string `validate:"required"`
}

type ValidateOutput struct {
	Valid bool
}

// Validate consumes a code. A code is accepted at most once: acceptance is a
// conditional transition out of ACTIVE, so two racing calls with the same
// code see exactly one true.
//
// A stale record found here is retired on the spot rather than waiting for
// the background sweep.
func (s *Usecase) Validate(ctx context.Context, in ValidateInput) (*ValidateOutput, error) {
	ctx, span := s.startSpan(ctx, "Validate")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	code, err := s.repoDB.GetCodeByOperationAndValue(ctx, in.OperationID, in.Code)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "no matching code", "operation_id", in.OperationID)
		return &ValidateOutput{Valid: false}, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get code", "operation_id", in.OperationID, "error", err)
		return nil, storageError(err)
	}

	if code.Status != entity.StatusActive {
		slog.WarnContext(ctx, "code already settled",
			"operation_id", in.OperationID,
			"status", code.Status.String(),
		)
		return &ValidateOutput{Valid: false}, nil
	}

	if code.IsExpiredAt(s.clock.Now()) {
		if _, err := s.repoDB.UpdateCodeStatus(ctx, code.ID, entity.StatusExpired); err != nil {
			slog.ErrorContext(ctx, "failed to retire stale code", "code_id", code.ID, "error", err)
		}
		return &ValidateOutput{Valid: false}, nil
	}

	accepted, err := s.repoDB.UpdateCodeStatus(ctx, code.ID, entity.StatusUsed)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo mark code used", "code_id", code.ID, "error", err)
		return nil, storageError(err)
	}

	if accepted {
		slog.InfoContext(ctx, "code accepted", "operation_id", in.OperationID, "user_id", code.UserID)
	}

	return &ValidateOutput{Valid: accepted}, nil
}
