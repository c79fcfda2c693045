package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type verificationRepository struct {
	BaseRepository
}

func NewVerificationRepository(base BaseRepository) repository.VerificationRepository {
	return &verificationRepository{base}
}

func (r *verificationRepository) Create(ctx context.Context, v *model.Verification) error {
	query := `
		INSERT INTO verifications (id, identifier, value, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if v.ID == uuid.Nil {
		v.Base = model.NewBase(time.Now())
	}

	if _, err := r.exec(ctx, query, v.ID, v.Identifier, v.Value, v.ExpiresAt, v.CreatedAt, v.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create verification: %w", mapError("verification", err))
	}
	return nil
}

// GetByIdentifier returns the newest row for identifier.
func (r *verificationRepository) GetByIdentifier(ctx context.Context, identifier string) (*model.Verification, error) {
	query := `
		SELECT id, identifier, value, expires_at, created_at, updated_at
		FROM verifications
		WHERE identifier = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var v model.Verification
	if err := r.get(ctx, &v, query, identifier); err != nil {
		return nil, fmt.Errorf("failed to get verification: %w", mapError("verification", err))
	}
	return &v, nil
}

func (r *verificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.exec(ctx, `DELETE FROM verifications WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete verification: %w", err)
	}
	return nil
}

func (r *verificationRepository) DeleteByIdentifier(ctx context.Context, identifier string) error {
	if _, err := r.exec(ctx, `DELETE FROM verifications WHERE identifier = $1`, identifier); err != nil {
		return fmt.Errorf("failed to delete verifications: %w", err)
	}
	return nil
}

func (r *verificationRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.exec(ctx, `DELETE FROM verifications WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired verifications: %w", err)
	}
	return result.RowsAffected()
}
