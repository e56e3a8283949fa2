// Package telegram is a minimal Telegram Bot API client: enough to hold a
// long-polling session and push text messages to a chat.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
)

const defaultAPIBase = "https://api.telegram.org"

// ErrNotOK is returned when the Bot API answers with ok=false.
var ErrNotOK = errors.New("telegram: api response not ok")

// Config defines the inputs for building a Bot.
type Config struct {
	// Token is the bot token issued by BotFather.
	Token string
	// Username is the bot's public username, used in log lines only.
	Username string
	// PollTimeout is the long-poll timeout; zero means 30 seconds.
	PollTimeout time.Duration
	// APIBase overrides the Bot API base URL, for tests.
	APIBase string
	// HTTPClient overrides the HTTP client, for tests.
	HTTPClient *http.Client
}

// Bot is a long-polling Telegram bot session.
type Bot struct {
	token       string
	username    string
	apiBase     string
	pollTimeout time.Duration
	client      *http.Client

	cancel context.CancelFunc
	done   chan struct{}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID        int64  `json:"id"`
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
		} `json:"chat"`
	} `json:"message"`
}

// New builds a Bot; Start must be called before SendMessage.
func New(cfg Config) *Bot {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.PollTimeout + 10*time.Second}
	}

	return &Bot{
		token:       cfg.Token,
		username:    cfg.Username,
		apiBase:     cfg.APIBase,
		pollTimeout: cfg.PollTimeout,
		client:      cfg.HTTPClient,
	}
}

// Start validates the token and launches the long-poll loop on its own
// goroutine. It returns an error when the token is rejected.
func (b *Bot) Start(ctx context.Context) error {
	if _, err := b.call(ctx, "getMe", nil); err != nil {
		return err
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})

	go b.poll(pollCtx)

	slog.InfoContext(ctx, "telegram bot session started", "username", b.username)

	return nil
}

// SendMessage pushes a text message to the chat.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := b.call(ctx, "sendMessage", url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"text":    {text},
	})

	return err
}

// Close stops the long-poll loop and waits for it to exit.
func (b *Bot) Close(ctx context.Context) error {
	if b.cancel == nil {
		return nil
	}
	b.cancel()

	select {
	case <-b.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// poll drains getUpdates until the session is closed, answering chat
// messages so users can discover their chat id.
func (b *Bot) poll(ctx context.Context) {
	defer close(b.done)

	var offset int64
	backoff := retry.WithCappedDuration(time.Minute, retry.NewFibonacci(time.Second))

	for {
		if ctx.Err() != nil {
			return
		}

		var updates []update
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			raw, err := b.call(ctx, "getUpdates", url.Values{
				"offset":  {strconv.FormatInt(offset, 10)},
				"timeout": {strconv.FormatInt(int64(b.pollTimeout/time.Second), 10)},
			})
			if err != nil {
				return retry.RetryableError(err)
			}
			return json.Unmarshal(raw, &updates)
		})
		if err != nil {
			if ctx.Err() == nil {
				slog.ErrorContext(ctx, "telegram poll failed", "error", err)
			}
			return
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message == nil || u.Message.Text == "" {
				continue
			}

			b.answer(ctx, u.Message.Chat.ID, u.Message.Text)
		}
	}
}

func (b *Bot) answer(ctx context.Context, chatID int64, text string) {
	reply := "I only deliver one-time codes and cannot handle other messages."
	if text == "/start" {
		reply = "Welcome! This bot delivers one-time codes."
	}
	reply += fmt.Sprintf("\nYour chat_id: %d", chatID)

	if err := b.SendMessage(ctx, chatID, reply); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "telegram reply failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", b.apiBase, b.token, method)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	if !decoded.OK {
		return nil, fmt.Errorf("%w: %s %s", ErrNotOK, method, decoded.Description)
	}

	return decoded.Result, nil
}
