package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const (
	emailVerificationPrefix = "email-verification:"
	resetPasswordPrefix     = "reset-password:"
)

var (
	ErrInvalidCredentials = apperrors.Unauthorized("invalid email or password")
	ErrEmailNotVerified   = apperrors.Forbidden("email address is not verified")
	ErrInvalidToken       = apperrors.BadRequest("invalid or expired token", nil)
)

type AuthServicer interface {
	SignUpEmail(ctx context.Context, req *model.SignUpRequest, meta model.RequestMeta) (*model.AuthResult, error)
	SignInEmail(ctx context.Context, req *model.SignInRequest, meta model.RequestMeta) (*model.AuthResult, error)
	GetSession(ctx context.Context, token string) (*model.SessionWithUser, error)
	SignOut(ctx context.Context, token string) error
	SendVerificationEmail(ctx context.Context, address string) error
	VerifyEmail(ctx context.Context, token string) (*model.User, error)
	ForgetPassword(ctx context.Context, address string) error
	ResetPassword(ctx context.Context, req *model.ResetPasswordRequest) error
}

type Config struct {
	SessionTTL               time.Duration
	SessionUpdateAge         time.Duration
	VerificationTTL          time.Duration
	ResetPasswordTTL         time.Duration
	RequireEmailVerification bool
	BaseURL                  string
}

type Service struct {
	tx               repository.Transactor
	userRepo         repository.UserRepository
	sessionRepo      repository.SessionRepository
	accountRepo      repository.AccountRepository
	verificationRepo repository.VerificationRepository
	hasher           security.PasswordHasher
	tokens           *auth.TokenIssuer
	emailSvc         email.Service
	events           event.Emitter
	logger           *logger.Logger
	config           Config
	now              func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewService(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	accountRepo repository.AccountRepository,
	verificationRepo repository.VerificationRepository,
	hasher security.PasswordHasher,
	tokens *auth.TokenIssuer,
	emailSvc email.Service,
	events event.Emitter,
	logger *logger.Logger,
	config Config,
) *Service {
	return &Service{
		tx:               tx,
		userRepo:         userRepo,
		sessionRepo:      sessionRepo,
		accountRepo:      accountRepo,
		verificationRepo: verificationRepo,
		hasher:           hasher,
		tokens:           tokens,
		emailSvc:         emailSvc,
		events:           events,
		logger:           logger,
		config:           config,
		now:              time.Now,
	}
}

// SignUpEmail creates a user with a credential account and signs them in.
func (s *Service) SignUpEmail(ctx context.Context, req *model.SignUpRequest, meta model.RequestMeta) (*model.AuthResult, error) {
	if err := s.validateSignUp(req); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	user := &model.User{
		Name:  strings.TrimSpace(req.Name),
		Email: normalizeEmail(req.Email),
	}

	var result *model.AuthResult
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, user); err != nil {
			if apperrors.Is(err, apperrors.ErrConflict) {
				return apperrors.Conflict("email is already registered", err)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		account := &model.Account{
			AccountID:  user.ID.String(),
			ProviderID: model.ProviderCredential,
			UserID:     user.ID,
			Password:   &hash,
		}
		if err := s.accountRepo.Create(ctx, account); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}

		token, session, err := s.createSession(ctx, user.ID, meta)
		if err != nil {
			return err
		}

		if err := s.events.Emit(ctx, event.UserSignedUp, "user", user.ID, map[string]interface{}{
			"user_id": user.ID,
			"email":   user.Email,
		}); err != nil {
			return err
		}

		result = &model.AuthResult{Token: token, Session: session, User: user}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, user); err != nil {
		s.logger.Error(err, "Failed to send verification email", "user_id", user.ID.String())
	}

	return result, nil
}

// SignInEmail checks the password and opens a new session.
func (s *Service) SignInEmail(ctx context.Context, req *model.SignInRequest, meta model.RequestMeta) (*model.AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.compareDummy(req.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	account, err := s.accountRepo.GetByUserAndProvider(ctx, user.ID, model.ProviderCredential)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.compareDummy(req.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account.Password == nil {
		s.compareDummy(req.Password)
		return nil, ErrInvalidCredentials
	}

	if err := s.hasher.Compare(*account.Password, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	if s.config.RequireEmailVerification && !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	token, session, err := s.createSession(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}

	return &model.AuthResult{Token: token, Session: session, User: user}, nil
}

// GetSession resolves a bearer token. A missing, unknown or expired token
// yields nil without error. Sessions older than SessionUpdateAge get their
// expiry pushed out.
func (s *Service) GetSession(ctx context.Context, token string) (*model.SessionWithUser, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.GetByToken(ctx, security.HashToken(token))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	now := s.now()
	if session.Expired(now) {
		if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
			s.logger.Error(err, "Failed to delete expired session", "session_id", session.ID.String())
		}
		return nil, nil
	}

	user, err := s.userRepo.Get(ctx, session.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session user: %w", err)
	}

	refreshed := false
	if s.shouldRefresh(session, now) {
		expiresAt := now.Add(s.config.SessionTTL)
		if err := s.sessionRepo.UpdateExpiry(ctx, session.ID, expiresAt); err != nil {
			s.logger.Error(err, "Failed to refresh session", "session_id", session.ID.String())
		} else {
			session.ExpiresAt = expiresAt
			session.Touch(now)
			refreshed = true
		}
	}

	return &model.SessionWithUser{Session: session, User: user, Refreshed: refreshed}, nil
}

// SignOut revokes the session behind token. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessionRepo.DeleteByToken(ctx, security.HashToken(token)); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

// SendVerificationEmail issues a fresh verification link. Unknown and already
// verified addresses are accepted silently.
func (s *Service) SendVerificationEmail(ctx context.Context, address string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(address))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.EmailVerified {
		return nil
	}
	return s.sendVerification(ctx, user)
}

// VerifyEmail consumes a verification token and marks the address verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.tokens.ParseVerification(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	identifier := emailVerificationPrefix + userID.String()
	v, err := s.verificationRepo.GetByIdentifier(ctx, identifier)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}
	if v.Value != claims.ID || v.Expired(s.now()) {
		return nil, ErrInvalidToken
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.userRepo.MarkEmailVerified(ctx, userID); err != nil {
			return fmt.Errorf("failed to verify email: %w", err)
		}
		return s.verificationRepo.DeleteByIdentifier(ctx, identifier)
	})
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ForgetPassword emails a single-use reset link. Unknown addresses are
// accepted silently.
func (s *Service) ForgetPassword(ctx context.Context, address string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(address))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	token, err := security.NewToken()
	if err != nil {
		return err
	}

	v := &model.Verification{
		Identifier: resetPasswordPrefix + security.HashToken(token),
		Value:      user.ID.String(),
		ExpiresAt:  s.now().Add(s.config.ResetPasswordTTL),
	}
	if err := s.verificationRepo.Create(ctx, v); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	link := s.link("/authentication", "reset_token", token)
	if err := s.emailSvc.SendPasswordReset(ctx, user.Email, link); err != nil {
		s.logger.Error(err, "Failed to send password reset email", "user_id", user.ID.String())
	}
	return nil
}

// ResetPassword sets a new password from a reset token and revokes every
// session the user holds.
func (s *Service) ResetPassword(ctx context.Context, req *model.ResetPasswordRequest) error {
	if err := security.ValidatePassword(req.NewPassword); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}

	identifier := resetPasswordPrefix + security.HashToken(req.Token)
	v, err := s.verificationRepo.GetByIdentifier(ctx, identifier)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to get reset token: %w", err)
	}
	if v.Expired(s.now()) {
		return ErrInvalidToken
	}
	userID, err := uuid.Parse(v.Value)
	if err != nil {
		return ErrInvalidToken
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		account, err := s.accountRepo.GetByUserAndProvider(ctx, userID, model.ProviderCredential)
		switch {
		case apperrors.IsNotFound(err):
			account = &model.Account{
				AccountID:  userID.String(),
				ProviderID: model.ProviderCredential,
				UserID:     userID,
				Password:   &hash,
			}
			if err := s.accountRepo.Create(ctx, account); err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to get account: %w", err)
		default:
			if err := s.accountRepo.UpdatePassword(ctx, account.ID, hash); err != nil {
				return fmt.Errorf("failed to update password: %w", err)
			}
		}

		if err := s.verificationRepo.DeleteByIdentifier(ctx, identifier); err != nil {
			return err
		}
		if _, err := s.sessionRepo.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		return nil
	})
}

func (s *Service) createSession(ctx context.Context, userID uuid.UUID, meta model.RequestMeta) (string, *model.Session, error) {
	token, err := security.NewToken()
	if err != nil {
		return "", nil, err
	}

	session := &model.Session{
		Token:     security.HashToken(token),
		ExpiresAt: s.now().Add(s.config.SessionTTL),
		IPAddress: optional(meta.IPAddress),
		UserAgent: optional(meta.UserAgent),
		UserID:    userID,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}
	return token, session, nil
}

func (s *Service) sendVerification(ctx context.Context, user *model.User) error {
	token, jti, err := s.tokens.IssueVerification(user.ID, user.Email)
	if err != nil {
		return err
	}

	identifier := emailVerificationPrefix + user.ID.String()
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.verificationRepo.DeleteByIdentifier(ctx, identifier); err != nil {
			return err
		}
		return s.verificationRepo.Create(ctx, &model.Verification{
			Identifier: identifier,
			Value:      jti,
			ExpiresAt:  s.now().Add(s.config.VerificationTTL),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to store verification: %w", err)
	}

	return s.emailSvc.SendVerification(ctx, user.Email, s.link("/api/v1/auth/verify-email", "token", token))
}

// shouldRefresh reports whether the session was issued or last refreshed
// more than SessionUpdateAge ago.
// compareDummy spends the same hashing work a real password check would, so a
// failed sign-in takes as long whether or not the email is registered.
func (s *Service) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("not-a-real-password")
		if err != nil {
			s.logger.Error(err, "Failed to build placeholder password hash")
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_ = s.hasher.Compare(s.dummyHash, password)
	}
}

func (s *Service) shouldRefresh(session *model.Session, now time.Time) bool {
	issued := session.ExpiresAt.Add(-s.config.SessionTTL)
	return now.Sub(issued) >= s.config.SessionUpdateAge
}

func (s *Service) link(path, key, value string) string {
	q := url.Values{}
	q.Set(key, value)
	return strings.TrimRight(s.config.BaseURL, "/") + path + "?" + q.Encode()
}

func (s *Service) validateSignUp(req *model.SignUpRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.BadRequest("name is required", nil)
	}
	if normalizeEmail(req.Email) == "" {
		return apperrors.BadRequest("email is required", nil)
	}
	if err := security.ValidatePassword(req.Password); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	return nil
}

func normalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
