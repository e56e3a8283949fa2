// Package worker hosts the background jobs of the code engine.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/shandysiswandi/gootp/internal/otp/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/stacktrace"
)

const (
	defaultInitialDelay = 30 * time.Second
	defaultInterval     = time.Minute
	defaultStopGrace    = 10 * time.Second
)

// ErrStopTimeout is returned when a sweep is still running after the stop
// grace period.
var ErrStopTimeout = errors.New("worker: reconciler stop grace elapsed")

type sweeper interface {
	ReconcileExpired(ctx context.Context) (*usecase.ReconcileExpiredOutput, error)
}

// Dependency carries the inputs for building a Reconciler.
type Dependency struct {
	Sweeper sweeper

	// InitialDelay defers the first sweep after Start; zero means 30 seconds.
	InitialDelay time.Duration
	// Interval is the sweep period; zero means one minute.
	Interval time.Duration
	// StopGrace bounds how long Stop waits for an in-flight sweep before
	// cutting it off; zero means 10 seconds.
	StopGrace time.Duration
}

// Reconciler periodically retires ACTIVE code records whose window has
// passed. Each sweep is one bulk statement, so a sweep that finds nothing
// stale costs a single round trip.
type Reconciler struct {
	sweeper      sweeper
	initialDelay time.Duration
	interval     time.Duration
	stopGrace    time.Duration

	cancel context.CancelFunc
	force  context.CancelFunc
	done   chan struct{}
}

func New(dep Dependency) *Reconciler {
	if dep.InitialDelay <= 0 {
		dep.InitialDelay = defaultInitialDelay
	}
	if dep.Interval <= 0 {
		dep.Interval = defaultInterval
	}
	if dep.StopGrace <= 0 {
		dep.StopGrace = defaultStopGrace
	}

	return &Reconciler{
		sweeper:      dep.Sweeper,
		initialDelay: dep.InitialDelay,
		interval:     dep.Interval,
		stopGrace:    dep.StopGrace,
	}
}

// Start launches the sweep loop on its own goroutine.
//
// The loop and the sweeps get separate contexts: Stop cancels the loop right
// away but leaves an in-flight sweep running until the grace period elapses.
func (r *Reconciler) Start() {
	loopCtx, cancel := context.WithCancel(context.Background())
	sweepCtx, force := context.WithCancel(context.Background())
	r.cancel = cancel
	r.force = force
	r.done = make(chan struct{})

	go r.loop(loopCtx, sweepCtx)

	slog.Info("expiration reconciler started",
		"initial_delay", r.initialDelay,
		"interval", r.interval,
	)
}

// Stop asks the loop to finish and waits for an in-flight sweep to complete
// on its own. A sweep still running when the grace period elapses gets its
// context cancelled, and Stop reports ErrStopTimeout once the loop unwinds.
func (r *Reconciler) Stop(ctx context.Context) error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()

	grace := time.NewTimer(r.stopGrace)
	defer grace.Stop()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.force()
		return ctx.Err()
	case <-grace.C:
	}

	r.force()

	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return ErrStopTimeout
}

func (r *Reconciler) loop(ctx, sweepCtx context.Context) {
	defer close(r.done)

	delay := time.NewTimer(r.initialDelay)
	defer delay.Stop()

	select {
	case <-ctx.Done():
		return
	case <-delay.C:
	}

	r.sweep(sweepCtx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(sweepCtx)
		}
	}
}

// sweep runs inline on the loop goroutine so Stop can wait for it. A
// panicking run is logged and the loop keeps ticking.
func (r *Reconciler) sweep(ctx context.Context) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			paths := stacktrace.InternalPaths(stack)
			if len(paths) == 0 {
				slog.ErrorContext(ctx, "expiration sweep panicked", "panic", rvr, "stack", string(stack))
			} else {
				slog.ErrorContext(ctx, "expiration sweep panicked", "panic", rvr, "stack", paths)
			}
		}
	}()

	if _, err := r.sweeper.ReconcileExpired(ctx); err != nil {
		slog.ErrorContext(ctx, "expiration sweep failed", "error", err)
	}
}
