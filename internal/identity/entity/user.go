package entity

import "time"

// User is an account without credential material.
type User struct {
	ID        int64
	Login     string
	Role      Role
	CreatedAt time.Time
}

// UserCredential carries what a login check needs.
type UserCredential struct {
	ID           int64
	Login        string
	PasswordHash string
	Role         Role
}
