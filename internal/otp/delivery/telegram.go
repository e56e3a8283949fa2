package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/telegram"
	"go.uber.org/atomic"
)

const telegramTemplate = "Your OTP code is: %s"

// Telegram sends codes to a chat through a bot session. The recipient is the
// numeric chat id, which users learn by messaging the bot.
//
// A failed session start is not fatal: the next Send retries it.
type Telegram struct {
	cfg telegram.Config

	mu          sync.Mutex
	bot         *telegram.Bot
	initialized atomic.Bool
}

func NewTelegram(cfg telegram.Config) *Telegram {
	return &Telegram{cfg: cfg}
}

func (*Telegram) Kind() entity.Channel {
	return entity.ChannelTelegram
}

func (*Telegram) CanDeliver(_ context.Context, recipient string) bool {
	_, err := strconv.ParseInt(recipient, 10, 64)

	return err == nil
}

// Initialize starts the bot session. Safe to call again after a failure.
func (t *Telegram) Initialize(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := t.sessionLocked(ctx)

	return err
}

// sessionLocked returns the live bot session, starting one when needed.
// Callers must hold t.mu.
func (t *Telegram) sessionLocked(ctx context.Context) (*telegram.Bot, error) {
	if t.initialized.Load() && t.bot != nil {
		return t.bot, nil
	}

	bot := telegram.New(t.cfg)
	if err := bot.Start(ctx); err != nil {
		slog.ErrorContext(ctx, "telegram bot session start failed", "error", err)

		return nil, fmt.Errorf("delivery: start telegram bot: %w", err)
	}

	t.bot = bot
	t.initialized.Store(true)

	return bot, nil
}

func (t *Telegram) Send(ctx context.Context, recipient, code string) error {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		slog.WarnContext(ctx, "invalid telegram chat id", "recipient", recipient)

		return ErrInvalidRecipient
	}

	// The session reference is taken under the lock so a concurrent
	// Shutdown cannot nil it out from under the send.
	t.mu.Lock()
	bot, err := t.sessionLocked(ctx)
	t.mu.Unlock()
	if err != nil {
		return err
	}

	if err := bot.SendMessage(ctx, chatID, fmt.Sprintf(telegramTemplate, code)); err != nil {
		return fmt.Errorf("delivery: send telegram message: %w", err)
	}

	slog.InfoContext(ctx, "code sent to telegram chat", "chat_id", chatID)

	return nil
}

func (t *Telegram) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.initialized.Store(false)

	if t.bot == nil {
		return nil
	}

	err := t.bot.Close(ctx)
	t.bot = nil

	return err
}
