// Package delivery implements the transports that carry one-time codes to
// recipients: SMS emulation, email, filesystem drop, and a Telegram bot.
package delivery

import (
	"context"
	"errors"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
)

var (
	// ErrInvalidRecipient is returned by Send when the recipient does not fit
	// the transport's address format.
	ErrInvalidRecipient = errors.New("delivery: invalid recipient")

	// ErrUnknownChannel is returned by the registry for a channel it cannot build.
	ErrUnknownChannel = errors.New("delivery: unknown channel")
)

// Channel carries one-time codes over a single transport.
type Channel interface {
	// Kind identifies the transport.
	Kind() entity.Channel
	// CanDeliver reports whether the recipient is acceptable for this transport.
	CanDeliver(ctx context.Context, recipient string) bool
	// Send pushes the code to the recipient.
	Send(ctx context.Context, recipient, code string) error
	// Initialize prepares transport resources.
	Initialize(ctx context.Context) error
	// Shutdown releases transport resources.
	Shutdown(ctx context.Context) error
}

// nopLifecycle is embedded by transports that hold no long-lived resources.
type nopLifecycle struct{}

func (nopLifecycle) Initialize(context.Context) error { return nil }

func (nopLifecycle) Shutdown(context.Context) error { return nil }
