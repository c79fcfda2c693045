package model

import (
	"time"

	"github.com/google/uuid"
)

// ProviderCredential marks an email/password account.
const ProviderCredential = "credential"

// Account links a user to an identity provider. For credential accounts
// Password carries the bcrypt hash.
type Account struct {
	Base
	AccountID             string     `json:"account_id" db:"account_id"`
	ProviderID            string     `json:"provider_id" db:"provider_id"`
	UserID                uuid.UUID  `json:"user_id" db:"user_id"`
	AccessToken           *string    `json:"-" db:"access_token"`
	RefreshToken          *string    `json:"-" db:"refresh_token"`
	IDToken               *string    `json:"-" db:"id_token"`
	AccessTokenExpiresAt  *time.Time `json:"access_token_expires_at,omitempty" db:"access_token_expires_at"`
	RefreshTokenExpiresAt *time.Time `json:"refresh_token_expires_at,omitempty" db:"refresh_token_expires_at"`
	Scope                 *string    `json:"scope,omitempty" db:"scope"`
	Password              *string    `json:"-" db:"password"`
}
