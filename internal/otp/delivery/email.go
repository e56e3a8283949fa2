package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/mail"
)

const (
	emailSubject  = "Your OTP Code"
	emailTemplate = "Your one-time password (OTP) code is: %s\n\nThis code will expire soon."
)

var emailPattern = regexp.MustCompile(
	`^[a-zA-Z0-9_+&*-]+(?:\.[a-zA-Z0-9_+&*-]+)*@(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,7}$`,
)

// Email sends codes through the configured mail provider.
type Email struct {
	nopLifecycle

	mailer mail.Mail
}

func NewEmail(mailer mail.Mail) *Email {
	return &Email{mailer: mailer}
}

func (*Email) Kind() entity.Channel {
	return entity.ChannelEmail
}

func (*Email) CanDeliver(_ context.Context, recipient string) bool {
	return emailPattern.MatchString(recipient)
}

func (e *Email) Send(ctx context.Context, recipient, code string) error {
	if !emailPattern.MatchString(recipient) {
		slog.WarnContext(ctx, "invalid email address", "recipient", recipient)

		return ErrInvalidRecipient
	}

	msg := mail.Message{
		To:       []string{recipient},
		Subject:  emailSubject,
		TextBody: fmt.Sprintf(emailTemplate, code),
	}

	if err := e.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("delivery: send email: %w", err)
	}

	slog.InfoContext(ctx, "code sent to email", "recipient", recipient)

	return nil
}
