package model

import (
	"time"

	"github.com/google/uuid"
)

type Appointment struct {
	Base
	Date      time.Time `json:"date" db:"date"`
	PatientID uuid.UUID `json:"patient_id" db:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id" db:"doctor_id"`
	ClinicID  uuid.UUID `json:"clinic_id" db:"clinic_id"`
}

type AppointmentRequest struct {
	Date      time.Time `json:"date" binding:"required"`
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	DoctorID  uuid.UUID `json:"doctor_id" binding:"required"`
}

type AppointmentFilters struct {
	ClinicID  uuid.UUID
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	From      *time.Time
	To        *time.Time
}

// Slot is a bookable start time for a doctor.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}
