package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/gootp/internal/otp/usecase"
)

type fakeSweeper struct {
	mu    sync.Mutex
	calls int
}

func (s *fakeSweeper) ReconcileExpired(context.Context) (*usecase.ReconcileExpiredOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	return &usecase.ReconcileExpiredOutput{}, nil
}

func (s *fakeSweeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

// blockingSweeper parks inside the sweep until released or cancelled, handing
// the sweep context to the test first.
type blockingSweeper struct {
	started chan context.Context
	release chan struct{}
}

func newBlockingSweeper() *blockingSweeper {
	return &blockingSweeper{
		started: make(chan context.Context, 1),
		release: make(chan struct{}),
	}
}

func (s *blockingSweeper) ReconcileExpired(ctx context.Context) (*usecase.ReconcileExpiredOutput, error) {
	s.started <- ctx

	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &usecase.ReconcileExpiredOutput{}, nil
}

func waitForCalls(t *testing.T, s *fakeSweeper, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.count() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("expected at least %d sweeps, got %d", want, s.count())
}

func TestReconcilerSweeps(t *testing.T) {
	// Arrange
	sweeper := &fakeSweeper{}
	rec := New(Dependency{
		Sweeper:      sweeper,
		InitialDelay: 5 * time.Millisecond,
		Interval:     10 * time.Millisecond,
		StopGrace:    time.Second,
	})

	// Act
	rec.Start()
	waitForCalls(t, sweeper, 3)

	// Assert
	if err := rec.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected error stopping: %v", err)
	}
}

func TestReconcilerStop(t *testing.T) {
	t.Run("WaitsForInFlightSweep", func(t *testing.T) {
		// Arrange
		sweeper := newBlockingSweeper()
		rec := New(Dependency{
			Sweeper:      sweeper,
			InitialDelay: time.Millisecond,
			Interval:     time.Hour,
			StopGrace:    2 * time.Second,
		})
		rec.Start()
		sweepCtx := <-sweeper.started

		// Act
		stopErr := make(chan error, 1)
		go func() { stopErr <- rec.Stop(context.Background()) }()

		// Assert: within the grace period the sweep keeps its context and
		// Stop keeps waiting.
		time.Sleep(50 * time.Millisecond)
		if sweepCtx.Err() != nil {
			t.Fatal("expected in-flight sweep context to stay live during the grace period")
		}
		select {
		case err := <-stopErr:
			t.Fatalf("expected Stop to wait for the sweep, returned %v", err)
		default:
		}

		close(sweeper.release)
		if err := <-stopErr; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("ForceCancelsAfterGrace", func(t *testing.T) {
		// Arrange
		sweeper := newBlockingSweeper()
		rec := New(Dependency{
			Sweeper:      sweeper,
			InitialDelay: time.Millisecond,
			Interval:     time.Hour,
			StopGrace:    30 * time.Millisecond,
		})
		rec.Start()
		sweepCtx := <-sweeper.started

		// Act
		err := rec.Stop(context.Background())

		// Assert
		if err != ErrStopTimeout {
			t.Fatalf("expected ErrStopTimeout, got %v", err)
		}
		if sweepCtx.Err() == nil {
			t.Fatal("expected the overrunning sweep to be cancelled after the grace period")
		}
	})

	t.Run("BeforeFirstSweep", func(t *testing.T) {
		// Arrange
		sweeper := &fakeSweeper{}
		rec := New(Dependency{
			Sweeper:      sweeper,
			InitialDelay: time.Hour,
			Interval:     time.Hour,
			StopGrace:    time.Second,
		})
		rec.Start()

		// Act
		err := rec.Stop(context.Background())

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sweeper.count() != 0 {
			t.Fatalf("expected no sweeps, got %d", sweeper.count())
		}
	})

	t.Run("WithoutStart", func(t *testing.T) {
		// Arrange
		rec := New(Dependency{Sweeper: &fakeSweeper{}})

		// Act & Assert
		if err := rec.Stop(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestReconcilerDefaults(t *testing.T) {
	rec := New(Dependency{Sweeper: &fakeSweeper{}})

	if rec.initialDelay != defaultInitialDelay {
		t.Fatalf("expected default initial delay, got %v", rec.initialDelay)
	}
	if rec.interval != defaultInterval {
		t.Fatalf("expected default interval, got %v", rec.interval)
	}
	if rec.stopGrace != defaultStopGrace {
		t.Fatalf("expected default stop grace, got %v", rec.stopGrace)
	}
}
