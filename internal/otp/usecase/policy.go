package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

type GetPolicyOutput struct {
	Length       int
	ExpirationMs int
	UpdatedAt    time.Time
}

// GetPolicy returns the current code policy. Admin only.
func (s *Usecase) GetPolicy(ctx context.Context) (*GetPolicyOutput, error) {
	ctx, span := s.startSpan(ctx, "GetPolicy")
	defer span.End()

	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	policy, err := s.repoDB.GetPolicy(ctx, s.defaultPolicy)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get policy", "error", err)
		return nil, storageError(err)
	}

	return &GetPolicyOutput{
		Length:       policy.Length,
		ExpirationMs: policy.ExpirationMs,
		UpdatedAt:    policy.UpdatedAt,
	}, nil
}

type UpdatePolicyInput struct {
	Length       int `validate:"required"`
	ExpirationMs int `validate:"required"`
}

// UpdatePolicy replaces the code policy after checking the allowed bounds.
// Admin only; later issues pick up the new values, already issued codes keep
// their original window.
func (s *Usecase) UpdatePolicy(ctx context.Context, in UpdatePolicyInput) error {
	ctx, span := s.startSpan(ctx, "UpdatePolicy")
	defer span.End()

	if err := s.requireAdmin(ctx); err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	policy := entity.Policy{Length: in.Length, ExpirationMs: in.ExpirationMs}
	if !policy.Validate() {
		return goerror.NewInvalidInput(nil,
			"length", fmt.Sprintf("must be between %d and %d", entity.PolicyMinLength, entity.PolicyMaxLength),
			"expiration_time_ms", fmt.Sprintf("must be between %d and %d", entity.PolicyMinExpirationMs, entity.PolicyMaxExpirationMs),
		)
	}

	if err := s.repoDB.UpdatePolicy(ctx, policy); err != nil {
		slog.ErrorContext(ctx, "failed to repo update policy", "error", err)
		return storageError(err)
	}

	slog.InfoContext(ctx, "code policy updated",
		"length", in.Length,
		"expiration_time_ms", in.ExpirationMs,
	)

	return nil
}
