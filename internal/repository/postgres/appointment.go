package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const appointmentColumns = `id, date, patient_id, doctor_id, clinic_id, created_at, updated_at`

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if appointment.ID == uuid.Nil {
		appointment.Base = model.NewBase(time.Now())
	}

	_, err := r.exec(ctx, query,
		appointment.ID,
		appointment.Date,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.ClinicID,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", mapError("appointment", err))
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 AND clinic_id = $2`

	var appointment model.Appointment
	if err := r.get(ctx, &appointment, query, id, clinicID); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", mapError("appointment", err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET date = $1, patient_id = $2, doctor_id = $3, updated_at = $4
		WHERE id = $5 AND clinic_id = $6
	`
	appointment.UpdatedAt = time.Now()

	if err := r.execOne(ctx, "appointment", query,
		appointment.Date,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.UpdatedAt,
		appointment.ID,
		appointment.ClinicID,
	); err != nil {
		return fmt.Errorf("failed to update appointment: %w", mapError("appointment", err))
	}
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	query := `DELETE FROM appointments WHERE id = $1 AND clinic_id = $2`
	if err := r.execOne(ctx, "appointment", query, id, clinicID); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE clinic_id = $1`
	args := []interface{}{filters.ClinicID}
	argCount := 2

	if filters.DoctorID != nil {
		query += fmt.Sprintf(" AND doctor_id = $%d", argCount)
		args = append(args, *filters.DoctorID)
		argCount++
	}

	if filters.PatientID != nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argCount)
		args = append(args, *filters.PatientID)
		argCount++
	}

	if filters.From != nil {
		query += fmt.Sprintf(" AND date >= $%d", argCount)
		args = append(args, *filters.From)
		argCount++
	}

	if filters.To != nil {
		query += fmt.Sprintf(" AND date < $%d", argCount)
		args = append(args, *filters.To)
		argCount++
	}

	query += " ORDER BY date ASC, id"

	appointments := []*model.Appointment{}
	if err := r.list(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) DoctorBooked(ctx context.Context, doctorID uuid.UUID, date time.Time, excludeID *uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM appointments WHERE doctor_id = $1 AND date = $2`
	args := []interface{}{doctorID, date}

	if excludeID != nil {
		query += " AND id != $3"
		args = append(args, *excludeID)
	}
	query += ")"

	var booked bool
	if err := r.get(ctx, &booked, query, args...); err != nil {
		return false, fmt.Errorf("failed to check doctor schedule: %w", err)
	}
	return booked, nil
}
