package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type clinicRepository struct {
	BaseRepository
}

func NewClinicRepository(base BaseRepository) repository.ClinicRepository {
	return &clinicRepository{base}
}

func (r *clinicRepository) Create(ctx context.Context, clinic *model.Clinic) error {
	query := `
		INSERT INTO clinics (id, name, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if clinic.ID == uuid.Nil {
		clinic.Base = model.NewBase(time.Now())
	}

	_, err := r.exec(ctx, query,
		clinic.ID,
		clinic.Name,
		clinic.Address,
		clinic.CreatedAt,
		clinic.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create clinic: %w", mapError("clinic", err))
	}
	return nil
}

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	return r.getClinic(ctx, id, "")
}

func (r *clinicRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	return r.getClinic(ctx, id, " FOR UPDATE")
}

func (r *clinicRepository) getClinic(ctx context.Context, id uuid.UUID, lock string) (*model.Clinic, error) {
	query := `
		SELECT id, name, address, created_at, updated_at
		FROM clinics
		WHERE id = $1` + lock
	var clinic model.Clinic
	if err := r.get(ctx, &clinic, query, id); err != nil {
		return nil, fmt.Errorf("failed to get clinic: %w", mapError("clinic", err))
	}
	return &clinic, nil
}

func (r *clinicRepository) Update(ctx context.Context, clinic *model.Clinic) error {
	query := `
		UPDATE clinics
		SET name = $1, address = $2, updated_at = $3
		WHERE id = $4
	`
	clinic.UpdatedAt = time.Now()

	if err := r.execOne(ctx, "clinic", query,
		clinic.Name,
		clinic.Address,
		clinic.UpdatedAt,
		clinic.ID,
	); err != nil {
		return fmt.Errorf("failed to update clinic: %w", err)
	}
	return nil
}

// Delete removes the clinic together with its doctors, patients, appointments
// and memberships.
func (r *clinicRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.execOne(ctx, "clinic", `DELETE FROM clinics WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete clinic: %w", err)
	}
	return nil
}

// ListByUser returns the user's clinics in membership order.
func (r *clinicRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Clinic, error) {
	query := `
		SELECT c.id, c.name, c.address, c.created_at, c.updated_at
		FROM clinics c
		JOIN users_to_clinic uc ON uc.clinic_id = c.id
		WHERE uc.user_id = $1
		ORDER BY uc.created_at, uc.clinic_id
	`
	clinics := []*model.Clinic{}
	if err := r.list(ctx, &clinics, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list clinics: %w", err)
	}
	return clinics, nil
}
