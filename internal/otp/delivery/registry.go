package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/clock"
	"github.com/shandysiswandi/gootp/internal/pkg/mail"
	"github.com/shandysiswandi/gootp/internal/pkg/telegram"
)

// RegistryDependency carries the shared resources the transports draw on.
type RegistryDependency struct {
	Mailer   mail.Mail
	Telegram telegram.Config
	FileDir  string
	Clock    clock.Clocker
}

// Registry hands out delivery channels, constructing each transport at most
// once per process and reusing the instance for later sends.
type Registry struct {
	dep RegistryDependency

	mu      sync.Mutex
	entries map[entity.Channel]*registryEntry
}

// registryEntry carries the per-kind once so construction of one kind does
// not block lookups of another behind transport I/O.
type registryEntry struct {
	once sync.Once
	ch   Channel
}

func NewRegistry(dep RegistryDependency) *Registry {
	return &Registry{
		dep:     dep,
		entries: make(map[entity.Channel]*registryEntry),
	}
}

// Channel returns the transport for the given kind, building it on first use.
//
// Transports with a session, Telegram today, are started here; a start
// failure still caches the instance so the next Send can retry on its own.
func (r *Registry) Channel(ctx context.Context, kind entity.Channel) (Channel, error) {
	switch kind {
	case entity.ChannelSMS, entity.ChannelEmail, entity.ChannelFile, entity.ChannelTelegram:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, kind)
	}

	r.mu.Lock()
	e, ok := r.entries[kind]
	if !ok {
		e = &registryEntry{}
		r.entries[kind] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		e.ch = r.build(ctx, kind)
	})

	return e.ch, nil
}

func (r *Registry) build(ctx context.Context, kind entity.Channel) Channel {
	var ch Channel
	switch kind {
	case entity.ChannelSMS:
		ch = NewSMS()
	case entity.ChannelEmail:
		ch = NewEmail(r.dep.Mailer)
	case entity.ChannelFile:
		ch = NewFile(r.dep.FileDir, r.dep.Clock)
	case entity.ChannelTelegram:
		tg := NewTelegram(r.dep.Telegram)
		if err := tg.Initialize(ctx); err != nil {
			slog.WarnContext(ctx, "channel initialization deferred", "channel", kind.String(), "error", err)
		}
		ch = tg
	}

	slog.InfoContext(ctx, "delivery channel created", "channel", kind.String())

	return ch
}

// ShutdownAll stops every constructed transport. A failing channel is logged
// and does not block the others.
func (r *Registry) ShutdownAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for kind, e := range r.entries {
		// A no-op Do waits out any construction still in flight.
		e.once.Do(func() {})
		if e.ch == nil {
			continue
		}

		if err := e.ch.Shutdown(ctx); err != nil {
			slog.ErrorContext(ctx, "delivery channel shutdown failed", "channel", kind.String(), "error", err)
		}
	}

	clear(r.entries)
}
