package entity

import "time"

// Code is a persisted one-time code bound to a user and an
// application-defined operation.
type Code struct {
	// ID is the surrogate identity assigned on persist.
	ID int64
	// UserID is the owning user.
	UserID int64
	// OperationID is the caller-supplied correlation string scoping one
	// challenge; uniqueness is per (operation, code) pair.
	OperationID string
	// Value is the fixed-length numeric code.
	Value string
	// Status is the lifecycle state.
	Status Status
	// Channel records how the code was delivered.
	Channel Channel
	// CreatedAt is server-assigned.
	CreatedAt time.Time
	// ExpiresAt is fixed at issuance: CreatedAt plus the policy window.
	ExpiresAt time.Time
}

// IsExpiredAt reports whether the code's expiry timestamp is strictly in the
// past relative to now.
func (c Code) IsExpiredAt(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}
