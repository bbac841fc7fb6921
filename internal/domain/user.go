package domain

import "time"

// SeedUserID is the permanent administrative account created on first run.
const SeedUserID ID = 0

type User struct {
	ID             ID     `json:"id"`
	Name           string `json:"name"`
	PasswordDigest string `json:"passwordDigest"`
	Roles          []Role `json:"roles"`
}

// Clone returns a copy that shares no slices with u.
func (u User) Clone() User {
	roles := make([]Role, len(u.Roles))
	copy(roles, u.Roles)
	u.Roles = roles
	return u
}

// HasRole reports whether the user holds role.
func (u User) HasRole(role Role) bool {
	return HasRole(u.Roles, role)
}

// UserSession binds an opaque token to a user until ExpiresAt. It only ever
// lives in memory.
type UserSession struct {
	Token     string    `json:"-"`
	UserID    ID        `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is no longer valid at now.
func (s UserSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
