package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is a server-side login. Token holds the SHA-256 of the bearer token,
// never the token itself.
type Session struct {
	Base
	Token     string    `json:"-" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	IPAddress *string   `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string   `json:"user_agent,omitempty" db:"user_agent"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionWithUser is what a resolved session token yields.
type SessionWithUser struct {
	Session *Session `json:"session"`
	User    *User    `json:"user"`
	// Refreshed is set when this lookup pushed ExpiresAt out.
	Refreshed bool `json:"-"`
}

// RequestMeta carries client details recorded on new sessions.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
