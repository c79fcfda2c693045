package model

import (
	"time"

	"github.com/google/uuid"
)

type Clinic struct {
	Base
	Name    string  `json:"name" db:"name"`
	Address *string `json:"address,omitempty" db:"address"`
}

type CreateClinicRequest struct {
	Name    string  `json:"name" form:"name" binding:"required,min=1,max=255"`
	Address *string `json:"address" form:"address" binding:"omitempty,max=500"`
}

type UpdateClinicRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=1,max=255"`
	Address *string `json:"address" binding:"omitempty,max=500"`
}

// UserToClinic is a membership row. Rows are listed in insertion order.
type UserToClinic struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ClinicID  uuid.UUID `json:"clinic_id" db:"clinic_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
}
