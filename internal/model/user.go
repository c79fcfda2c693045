package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Base
	Name          string  `json:"name" db:"name"`
	Email         string  `json:"email" db:"email"`
	EmailVerified bool    `json:"email_verified" db:"email_verified"`
	Image         *string `json:"image,omitempty" db:"image"`
}

// UpdateUserRequest represents user profile update parameters
type UpdateUserRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=255"`
	Image *string `json:"image" binding:"omitempty,url"`
}

// ClinicMember is a user listed through a clinic membership.
type ClinicMember struct {
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Name     string    `json:"name" db:"name"`
	Email    string    `json:"email" db:"email"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}
