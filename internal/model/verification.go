package model

import "time"

// Verification is a short-lived identifier/value pair used by email
// verification and password reset.
type Verification struct {
	Base
	Identifier string    `json:"identifier" db:"identifier"`
	Value      string    `json:"value" db:"value"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
}

func (v *Verification) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
