package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const doctorColumns = `
	id, clinic_id, name, avatar_image_url, specialty, appointment_price_in_cents,
	available_from_week_day, available_to_week_day, available_from_time, available_to_time,
	created_at, updated_at`

type doctorRepository struct {
	BaseRepository
}

func NewDoctorRepository(base BaseRepository) repository.DoctorRepository {
	return &doctorRepository{base}
}

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (` + doctorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if doctor.ID == uuid.Nil {
		doctor.Base = model.NewBase(time.Now())
	}

	_, err := r.exec(ctx, query,
		doctor.ID,
		doctor.ClinicID,
		doctor.Name,
		doctor.AvatarImageURL,
		doctor.Specialty,
		doctor.AppointmentPriceInCents,
		doctor.FromWeekDay,
		doctor.ToWeekDay,
		doctor.FromTime,
		doctor.ToTime,
		doctor.CreatedAt,
		doctor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", mapError("doctor", err))
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Doctor, error) {
	return r.getDoctor(ctx, clinicID, id, "")
}

func (r *doctorRepository) GetForUpdate(ctx context.Context, clinicID, id uuid.UUID) (*model.Doctor, error) {
	return r.getDoctor(ctx, clinicID, id, " FOR UPDATE")
}

func (r *doctorRepository) getDoctor(ctx context.Context, clinicID, id uuid.UUID, lock string) (*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1 AND clinic_id = $2` + lock

	var doctor model.Doctor
	if err := r.get(ctx, &doctor, query, id, clinicID); err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", mapError("doctor", err))
	}
	return &doctor, nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	query := `
		UPDATE doctors
		SET name = $1, avatar_image_url = $2, specialty = $3, appointment_price_in_cents = $4,
			available_from_week_day = $5, available_to_week_day = $6,
			available_from_time = $7, available_to_time = $8, updated_at = $9
		WHERE id = $10 AND clinic_id = $11
	`
	doctor.UpdatedAt = time.Now()

	if err := r.execOne(ctx, "doctor", query,
		doctor.Name,
		doctor.AvatarImageURL,
		doctor.Specialty,
		doctor.AppointmentPriceInCents,
		doctor.FromWeekDay,
		doctor.ToWeekDay,
		doctor.FromTime,
		doctor.ToTime,
		doctor.UpdatedAt,
		doctor.ID,
		doctor.ClinicID,
	); err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}
	return nil
}

func (r *doctorRepository) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	query := `DELETE FROM doctors WHERE id = $1 AND clinic_id = $2`
	if err := r.execOne(ctx, "doctor", query, id, clinicID); err != nil {
		return fmt.Errorf("failed to delete doctor: %w", err)
	}
	return nil
}

func (r *doctorRepository) List(ctx context.Context, clinicID uuid.UUID) ([]*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE clinic_id = $1 ORDER BY name, id`

	doctors := []*model.Doctor{}
	if err := r.list(ctx, &doctors, query, clinicID); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}
