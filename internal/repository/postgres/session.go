package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type sessionRepository struct {
	BaseRepository
}

func NewSessionRepository(base BaseRepository) repository.SessionRepository {
	return &sessionRepository{base}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (
			id, token, expires_at, ip_address, user_agent, user_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if session.ID == uuid.Nil {
		session.Base = model.NewBase(time.Now())
	}

	_, err := r.exec(ctx, query,
		session.ID,
		session.Token,
		session.ExpiresAt,
		session.IPAddress,
		session.UserAgent,
		session.UserID,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", mapError("session", err))
	}
	return nil
}

func (r *sessionRepository) GetByToken(ctx context.Context, tokenHash string) (*model.Session, error) {
	query := `
		SELECT id, token, expires_at, ip_address, user_agent, user_id, created_at, updated_at
		FROM sessions
		WHERE token = $1
	`
	var session model.Session
	if err := r.get(ctx, &session, query, tokenHash); err != nil {
		return nil, fmt.Errorf("failed to get session: %w", mapError("session", err))
	}
	return &session, nil
}

func (r *sessionRepository) UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	query := `UPDATE sessions SET expires_at = $1, updated_at = NOW() WHERE id = $2`
	if err := r.execOne(ctx, "session", query, expiresAt, id); err != nil {
		return fmt.Errorf("failed to refresh session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *sessionRepository) DeleteByToken(ctx context.Context, tokenHash string) error {
	if _, err := r.exec(ctx, `DELETE FROM sessions WHERE token = $1`, tokenHash); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *sessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return result.RowsAffected()
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
