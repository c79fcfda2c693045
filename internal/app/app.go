// Package app builds the process-wide dependencies once and hands them to
// the HTTP server and the worker.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	appointmentService "github.com/jwalitptl/clinic-api/internal/service/appointment"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
	clinicService "github.com/jwalitptl/clinic-api/internal/service/clinic"
	dashboardService "github.com/jwalitptl/clinic-api/internal/service/dashboard"
	doctorService "github.com/jwalitptl/clinic-api/internal/service/doctor"
	eventService "github.com/jwalitptl/clinic-api/internal/service/event"
	patientService "github.com/jwalitptl/clinic-api/internal/service/patient"
	userService "github.com/jwalitptl/clinic-api/internal/service/user"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const (
	metricsNamespace = "clinic"
	tokenIssuer      = "clinic-api"
)

type Repositories struct {
	Users         repository.UserRepository
	Sessions      repository.SessionRepository
	Accounts      repository.AccountRepository
	Verifications repository.VerificationRepository
	Clinics       repository.ClinicRepository
	Memberships   repository.MembershipRepository
	Doctors       repository.DoctorRepository
	Patients      repository.PatientRepository
	Appointments  repository.AppointmentRepository
	Outbox        repository.OutboxRepository
}

type Services struct {
	Auth         *authService.Service
	Users        *userService.Service
	Clinics      *clinicService.Service
	Doctors      *doctorService.Service
	Patients     *patientService.Service
	Appointments *appointmentService.Service
	Dashboard    *dashboardService.Service
	Events       *eventService.Service
}

// App is the dependency context. Nothing in it is a package-level singleton.
type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *sqlx.DB
	Tx       repository.Transactor
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Repos    Repositories
	Services Services
}

// New connects to PostgreSQL and wires repositories and services.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewWithDB(db, cfg, log), nil
}

// NewWithDB wires everything on top of an existing pool.
func NewWithDB(db *sqlx.DB, cfg *config.Config, log *logger.Logger) *App {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	base := postgres.NewBaseRepository(db)
	repos := Repositories{
		Users:         postgres.NewUserRepository(base),
		Sessions:      postgres.NewSessionRepository(base),
		Accounts:      postgres.NewAccountRepository(base),
		Verifications: postgres.NewVerificationRepository(base),
		Clinics:       postgres.NewClinicRepository(base),
		Memberships:   postgres.NewMembershipRepository(base),
		Doctors:       postgres.NewDoctorRepository(base),
		Patients:      postgres.NewPatientRepository(base),
		Appointments:  postgres.NewAppointmentRepository(base),
		Outbox:        postgres.NewOutboxRepository(base),
	}

	a := &App{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		Tx:       base,
		Registry: registry,
		Metrics:  metrics.New(metricsNamespace, registry),
		Repos:    repos,
	}
	a.Services = a.buildServices()
	return a
}

func (a *App) buildServices() Services {
	cfg := a.Config
	loc := cfg.Schedule.Location()
	events := eventService.NewService(a.Repos.Outbox)

	authSvc := authService.NewService(
		a.Tx,
		a.Repos.Users,
		a.Repos.Sessions,
		a.Repos.Accounts,
		a.Repos.Verifications,
		security.NewBcryptHasher(cfg.Auth.BcryptCost),
		auth.NewTokenIssuer(cfg.Auth.Secret, tokenIssuer, cfg.Auth.VerificationTTL),
		email.New(cfg.Email, a.Logger),
		events,
		a.Logger,
		authService.Config{
			SessionTTL:               cfg.Auth.SessionTTL,
			SessionUpdateAge:         cfg.Auth.SessionUpdateAge,
			VerificationTTL:          cfg.Auth.VerificationTTL,
			ResetPasswordTTL:         cfg.Auth.ResetPasswordTTL,
			RequireEmailVerification: cfg.Auth.RequireEmailVerification,
			BaseURL:                  cfg.Server.BaseURL,
		},
	)

	return Services{
		Auth:    authSvc,
		Users:   userService.NewService(a.Tx, a.Repos.Users, events),
		Clinics: clinicService.NewService(a.Tx, a.Repos.Clinics, a.Repos.Memberships, a.Repos.Users, events),
		Doctors: doctorService.NewService(a.Tx, a.Repos.Doctors, a.Repos.Appointments, events, doctorService.Config{
			Location: loc,
			SlotSize: time.Duration(cfg.Schedule.SlotMinutes) * time.Minute,
		}),
		Patients:     patientService.NewService(a.Tx, a.Repos.Patients, events),
		Appointments: appointmentService.NewService(a.Tx, a.Repos.Appointments, a.Repos.Doctors, a.Repos.Patients, events, loc),
		Dashboard:    dashboardService.NewService(a.Repos.Memberships, a.Repos.Clinics),
		Events:       events,
	}
}

// Migrate applies pending schema migrations and logs what ran.
func (a *App) Migrate(ctx context.Context) error {
	applied, err := postgres.Migrate(ctx, a.DB)
	if err != nil {
		return err
	}
	for _, name := range applied {
		a.Logger.Info("Applied migration", "name", name)
	}
	return nil
}

func (a *App) Close() error {
	return a.DB.Close()
}
