package entity

// Status is the lifecycle state of a one-time code.
//
// ACTIVE is the only non-terminal state: a record moves to USED or EXPIRED
// exactly once and never transitions out of those.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusUsed    Status = "USED"
	StatusExpired Status = "EXPIRED"
)

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusUsed || s == StatusExpired
}

// Channel identifies a delivery mechanism for one-time codes.
type Channel string

const (
	ChannelUnknown  Channel = ""
	ChannelSMS      Channel = "SMS"
	ChannelEmail    Channel = "EMAIL"
	ChannelFile     Channel = "FILE"
	ChannelTelegram Channel = "TELEGRAM"
)

func (c Channel) String() string {
	return string(c)
}

// Channels lists every supported delivery channel.
func Channels() []Channel {
	return []Channel{ChannelSMS, ChannelEmail, ChannelFile, ChannelTelegram}
}

// ChannelFromString parses a caller-supplied channel name.
//
// Unknown names map to ChannelUnknown; callers treat that as invalid input.
func ChannelFromString(s string) Channel {
	switch Channel(s) {
	case ChannelSMS:
		return ChannelSMS
	case ChannelEmail:
		return ChannelEmail
	case ChannelFile:
		return ChannelFile
	case ChannelTelegram:
		return ChannelTelegram
	default:
		return ChannelUnknown
	}
}
