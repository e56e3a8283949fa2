package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
)

const smsTemplate = "Your OTP code is: %s"

// E.164 with a leading plus.
var phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// SMS emulates an SMS gateway. Valid phone numbers always succeed; the
// message is written to the log instead of a carrier.
type SMS struct {
	nopLifecycle
}

func NewSMS() *SMS {
	return &SMS{}
}

func (*SMS) Kind() entity.Channel {
	return entity.ChannelSMS
}

func (*SMS) CanDeliver(_ context.Context, recipient string) bool {
	return phonePattern.MatchString(recipient)
}

func (*SMS) Send(ctx context.Context, recipient, code string) error {
	if !phonePattern.MatchString(recipient) {
		slog.WarnContext(ctx, "invalid phone number", "recipient", recipient)

		return ErrInvalidRecipient
	}

	slog.InfoContext(ctx, "sms emulator delivered message",
		"to", recipient,
		"message", fmt.Sprintf(smsTemplate, code),
	)

	return nil
}
