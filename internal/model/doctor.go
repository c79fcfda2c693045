package model

import "github.com/google/uuid"

type Doctor struct {
	Base
	ClinicID                uuid.UUID `json:"clinic_id" db:"clinic_id"`
	Name                    string    `json:"name" db:"name"`
	AvatarImageURL          *string   `json:"avatar_image_url,omitempty" db:"avatar_image_url"`
	Specialty               string    `json:"specialty" db:"specialty"`
	AppointmentPriceInCents int       `json:"appointment_price_in_cents" db:"appointment_price_in_cents"`
	Availability
}

type DoctorRequest struct {
	Name                    string     `json:"name" binding:"required,min=1,max=255"`
	AvatarImageURL          *string    `json:"avatar_image_url" binding:"omitempty,url"`
	Specialty               string     `json:"specialty" binding:"required,min=1,max=255"`
	AppointmentPriceInCents *int       `json:"appointment_price_in_cents" binding:"required,min=0"`
	AvailableFromWeekDay    *Weekday   `json:"available_from_week_day" binding:"required,weekday"`
	AvailableToWeekDay      *Weekday   `json:"available_to_week_day" binding:"required,weekday"`
	AvailableFromTime       *TimeOfDay `json:"available_from_time" binding:"required,timeofday"`
	AvailableToTime         *TimeOfDay `json:"available_to_time" binding:"required,timeofday"`
}

// Apply copies the request onto d.
func (r *DoctorRequest) Apply(d *Doctor) {
	d.Name = r.Name
	d.AvatarImageURL = r.AvatarImageURL
	d.Specialty = r.Specialty
	if r.AppointmentPriceInCents != nil {
		d.AppointmentPriceInCents = *r.AppointmentPriceInCents
	}
	if r.AvailableFromWeekDay != nil {
		d.FromWeekDay = *r.AvailableFromWeekDay
	}
	if r.AvailableToWeekDay != nil {
		d.ToWeekDay = *r.AvailableToWeekDay
	}
	if r.AvailableFromTime != nil {
		d.FromTime = *r.AvailableFromTime
	}
	if r.AvailableToTime != nil {
		d.ToTime = *r.AvailableToTime
	}
}
