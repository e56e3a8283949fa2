package entity

import "time"

// Policy bounds, enforced on admin updates before anything reaches storage.
const (
	PolicyMinLength = 4
	PolicyMaxLength = 10

	PolicyMinExpirationMs = 60_000
	PolicyMaxExpirationMs = 3_600_000
)

// Policy is the tunable code policy, stored as a single row per deployment.
type Policy struct {
	// Length is the number of digits in generated codes.
	Length int
	// ExpirationMs is the validity window in milliseconds.
	ExpirationMs int
	// UpdatedAt is the last modification time.
	UpdatedAt time.Time
}

// Window returns the expiration window as a duration.
func (p Policy) Window() time.Duration {
	return time.Duration(p.ExpirationMs) * time.Millisecond
}

// Validate checks the configured bounds.
func (p Policy) Validate() bool {
	if p.Length < PolicyMinLength || p.Length > PolicyMaxLength {
		return false
	}
	if p.ExpirationMs < PolicyMinExpirationMs || p.ExpirationMs > PolicyMaxExpirationMs {
		return false
	}
	return true
}
