package entity

// Role is the authorization level of an account. The deployment holds at
// most one ADMIN account.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) String() string {
	return string(r)
}

// RoleFromString parses a caller-supplied role name; anything unrecognized
// falls back to USER.
func RoleFromString(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}

	return RoleUser
}
