package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type membershipRepository struct {
	BaseRepository
}

func NewMembershipRepository(base BaseRepository) repository.MembershipRepository {
	return &membershipRepository{base}
}

// Add inserts the membership; created_at comes from clock_timestamp() so
// rows added in one transaction still sort in insertion order.
func (r *membershipRepository) Add(ctx context.Context, m *model.UserToClinic) error {
	query := `
		INSERT INTO users_to_clinic (user_id, clinic_id)
		VALUES ($1, $2)
		RETURNING created_at, updated_at
	`
	if err := r.get(ctx, m, query, m.UserID, m.ClinicID); err != nil {
		return fmt.Errorf("failed to add clinic member: %w", mapError("membership", err))
	}
	return nil
}

func (r *membershipRepository) Remove(ctx context.Context, userID, clinicID uuid.UUID) error {
	query := `DELETE FROM users_to_clinic WHERE user_id = $1 AND clinic_id = $2`
	if err := r.execOne(ctx, "membership", query, userID, clinicID); err != nil {
		return fmt.Errorf("failed to remove clinic member: %w", err)
	}
	return nil
}

func (r *membershipRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.UserToClinic, error) {
	query := `
		SELECT user_id, clinic_id, created_at, updated_at
		FROM users_to_clinic
		WHERE user_id = $1
		ORDER BY created_at, clinic_id
	`
	memberships := []*model.UserToClinic{}
	if err := r.list(ctx, &memberships, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return memberships, nil
}

func (r *membershipRepository) Exists(ctx context.Context, userID, clinicID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users_to_clinic WHERE user_id = $1 AND clinic_id = $2)`
	var exists bool
	if err := r.get(ctx, &exists, query, userID, clinicID); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

func (r *membershipRepository) ListMembers(ctx context.Context, clinicID uuid.UUID) ([]*model.ClinicMember, error) {
	query := `
		SELECT u.id AS user_id, u.name, u.email, uc.created_at AS joined_at
		FROM users_to_clinic uc
		JOIN users u ON u.id = uc.user_id
		WHERE uc.clinic_id = $1
		ORDER BY uc.created_at, u.id
	`
	members := []*model.ClinicMember{}
	if err := r.list(ctx, &members, query, clinicID); err != nil {
		return nil, fmt.Errorf("failed to list clinic members: %w", err)
	}
	return members, nil
}

func (r *membershipRepository) CountMembers(ctx context.Context, clinicID uuid.UUID) (int, error) {
	var n int
	if err := r.get(ctx, &n, `SELECT COUNT(*) FROM users_to_clinic WHERE clinic_id = $1`, clinicID); err != nil {
		return 0, fmt.Errorf("failed to count clinic members: %w", err)
	}
	return n, nil
}
