package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

type Service interface {
	SendVerification(ctx context.Context, email string, link string) error
	SendPasswordReset(ctx context.Context, email string, link string) error
	SendWelcome(ctx context.Context, email string, name string) error
}

// New returns an SMTP-backed service, or one that only logs when email is
// disabled.
func New(cfg config.EmailConfig, log *logger.Logger) Service {
	if !cfg.Enabled {
		return &logService{logger: log}
	}
	return NewSMTPService(cfg, gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password))
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPService struct {
	from   string
	dialer dialer
}

func NewSMTPService(cfg config.EmailConfig, d dialer) *SMTPService {
	return &SMTPService{from: cfg.From, dialer: d}
}

func (s *SMTPService) SendVerification(ctx context.Context, email string, link string) error {
	return s.send(email, "Verify your email address",
		fmt.Sprintf("Confirm your email address by opening this link:\n\n%s\n\nIgnore this email if you did not create an account.", link))
}

func (s *SMTPService) SendPasswordReset(ctx context.Context, email string, link string) error {
	return s.send(email, "Reset your password",
		fmt.Sprintf("Choose a new password by opening this link:\n\n%s\n\nIgnore this email if you did not ask for a reset.", link))
}

func (s *SMTPService) SendWelcome(ctx context.Context, email string, name string) error {
	return s.send(email, "Welcome",
		fmt.Sprintf("Hi %s,\n\nYour account is ready. Create or join a clinic to get started.", name))
}

func (s *SMTPService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type logService struct {
	logger *logger.Logger
}

func (s *logService) SendVerification(ctx context.Context, email string, link string) error {
	s.logger.Info("Email disabled, verification link", "email", email, "link", link)
	return nil
}

func (s *logService) SendPasswordReset(ctx context.Context, email string, link string) error {
	s.logger.Info("Email disabled, password reset link", "email", email, "link", link)
	return nil
}

func (s *logService) SendWelcome(ctx context.Context, email string, name string) error {
	s.logger.Debug("Email disabled, skipping welcome", "email", email)
	return nil
}
