package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

type IssueInput struct {
	UserID      int64  `validate:"required"`
	OperationID string
	Channel     string `validate:"required"`
	Recipient   string `validate:"required"`
}

type IssueOutput struct {
	OperationID string
	Channel     entity.Channel
	ExpiresAt   time.Time
}

// Issue generates a code under the current policy, persists it as ACTIVE, and
// pushes it to the recipient over the requested channel.
//
// A record whose delivery cannot happen is not left claimable: when the
// recipient is rejected or the send fails, the record is flipped to EXPIRED
// before the error is returned.
func (s *Usecase) Issue(ctx context.Context, in IssueInput) (*IssueOutput, error) {
	ctx, span := s.startSpan(ctx, "Issue")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	channel := entity.ChannelFromString(in.Channel)
	if channel == entity.ChannelUnknown {
		return nil, goerror.NewInvalidInput(nil, "channel", "unsupported delivery channel")
	}

	exists, err := s.users.UserExists(ctx, in.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo check user", "user_id", in.UserID, "error", err)
		return nil, storageError(err)
	}
	if !exists {
		slog.WarnContext(ctx, "code requested for unknown user", "user_id", in.UserID)
		return nil, goerror.NewBusiness("user not found", goerror.CodeNotFound)
	}

	policy, err := s.repoDB.GetPolicy(ctx, s.defaultPolicy)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get policy", "error", err)
		return nil, storageError(err)
	}

	value, err := generateCode(policy.Length)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate code", "error", err)
		return nil, goerror.NewServer(err)
	}

	operationID := in.OperationID
	if operationID == "" {
		operationID = s.uuid.Generate()
	}

	saved, err := s.repoDB.SaveCode(ctx, entity.Code{
		UserID:      in.UserID,
		OperationID: operationID,
		Value:       value,
		Status:      entity.StatusActive,
		Channel:     channel,
		ExpiresAt:   s.clock.Now().Add(policy.Window()),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo save code", "user_id", in.UserID, "error", err)
		return nil, storageError(err)
	}

	ch, err := s.registry.Channel(ctx, channel)
	if err != nil {
		s.expireUndeliverable(ctx, saved.ID)
		return nil, goerror.NewDeliveryFailed(err)
	}

	if !ch.CanDeliver(ctx, in.Recipient) {
		s.expireUndeliverable(ctx, saved.ID)
		return nil, goerror.NewInvalidInput(nil, "recipient", "recipient cannot be reached over "+channel.String())
	}

	if err := ch.Send(ctx, in.Recipient, value); err != nil {
		slog.ErrorContext(ctx, "code delivery failed",
			"user_id", in.UserID,
			"operation_id", operationID,
			"channel", channel.String(),
			"error", err,
		)
		s.expireUndeliverable(ctx, saved.ID)
		return nil, goerror.NewDeliveryFailed(err)
	}

	slog.InfoContext(ctx, "code issued",
		"user_id", in.UserID,
		"operation_id", operationID,
		"channel", channel.String(),
	)

	return &IssueOutput{
		OperationID: operationID,
		Channel:     channel,
		ExpiresAt:   saved.ExpiresAt,
	}, nil
}

// expireUndeliverable retires a record whose code never reached the user.
func (s *Usecase) expireUndeliverable(ctx context.Context, id int64) {
	if _, err := s.repoDB.UpdateCodeStatus(ctx, id, entity.StatusExpired); err != nil {
		slog.ErrorContext(ctx, "failed to expire undeliverable code", "code_id", id, "error", err)
	}
}
