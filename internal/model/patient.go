package model

import "github.com/google/uuid"

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

type Patient struct {
	Base
	ClinicID    uuid.UUID `json:"clinic_id" db:"clinic_id"`
	Name        string    `json:"name" db:"name"`
	Email       string    `json:"email" db:"email"`
	PhoneNumber string    `json:"phone_number" db:"phone_number"`
	Sex         Sex       `json:"sex" db:"sex"`
}

type PatientRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=255"`
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phone_number" binding:"required,min=3,max=32"`
	Sex         Sex    `json:"sex" binding:"required,sex"`
}

func (r *PatientRequest) Apply(p *Patient) {
	p.Name = r.Name
	p.Email = r.Email
	p.PhoneNumber = r.PhoneNumber
	p.Sex = r.Sex
}

type PatientFilters struct {
	ClinicID uuid.UUID
	Search   string
}
