package usecase

import (
	"context"
	"log/slog"
)

type ReconcileExpiredOutput struct {
	Marked int64
}

// ReconcileExpired retires every ACTIVE record whose window has passed.
// Running it again with nothing stale is a no-op.
func (s *Usecase) ReconcileExpired(ctx context.Context) (*ReconcileExpiredOutput, error) {
	ctx, span := s.startSpan(ctx, "ReconcileExpired")
	defer span.End()

	marked, err := s.repoDB.MarkAllExpired(ctx, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo mark expired codes", "error", err)
		return nil, storageError(err)
	}

	if marked > 0 {
		slog.InfoContext(ctx, "stale codes retired", "count", marked)
	}

	return &ReconcileExpiredOutput{Marked: marked}, nil
}
