package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type accountRepository struct {
	BaseRepository
}

func NewAccountRepository(base BaseRepository) repository.AccountRepository {
	return &accountRepository{base}
}

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (
			id, account_id, provider_id, user_id, access_token, refresh_token, id_token,
			access_token_expires_at, refresh_token_expires_at, scope, password,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	if account.ID == uuid.Nil {
		account.Base = model.NewBase(time.Now())
	}

	_, err := r.exec(ctx, query,
		account.ID,
		account.AccountID,
		account.ProviderID,
		account.UserID,
		account.AccessToken,
		account.RefreshToken,
		account.IDToken,
		account.AccessTokenExpiresAt,
		account.RefreshTokenExpiresAt,
		account.Scope,
		account.Password,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", mapError("account", err))
	}
	return nil
}

func (r *accountRepository) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, providerID string) (*model.Account, error) {
	query := `
		SELECT
			id, account_id, provider_id, user_id, access_token, refresh_token, id_token,
			access_token_expires_at, refresh_token_expires_at, scope, password,
			created_at, updated_at
		FROM accounts
		WHERE user_id = $1 AND provider_id = $2
	`
	var account model.Account
	if err := r.get(ctx, &account, query, userID, providerID); err != nil {
		return nil, fmt.Errorf("failed to get account: %w", mapError("account", err))
	}
	return &account, nil
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE accounts SET password = $1, updated_at = NOW() WHERE id = $2`
	if err := r.execOne(ctx, "account", query, passwordHash, id); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
