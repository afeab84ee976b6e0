package model

import (
	"time"
)

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Not exposed
	CreatedAt      time.Time `json:"created_at"`
}

// SessionUser is the identity snapshot a session holds. It is copied once at
// login and never refreshed from the users table.
type SessionUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u *User) Snapshot() SessionUser {
	return SessionUser{ID: u.ID, Username: u.Username, Email: u.Email}
}
