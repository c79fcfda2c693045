package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	// Transactor runs fn in a transaction carried by the context it passes on.
	// Repository calls made with that context join the transaction.
	Transactor interface {
		WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		Delete(ctx context.Context, id uuid.UUID) error
		MarkEmailVerified(ctx context.Context, id uuid.UUID) error
	}

	SessionRepository interface {
		Create(ctx context.Context, session *model.Session) error
		GetByToken(ctx context.Context, tokenHash string) (*model.Session, error)
		UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
		Delete(ctx context.Context, id uuid.UUID) error
		DeleteByToken(ctx context.Context, tokenHash string) error
		DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
		DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	}

	AccountRepository interface {
		Create(ctx context.Context, account *model.Account) error
		GetByUserAndProvider(ctx context.Context, userID uuid.UUID, providerID string) (*model.Account, error)
		UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	}

	VerificationRepository interface {
		Create(ctx context.Context, v *model.Verification) error
		GetByIdentifier(ctx context.Context, identifier string) (*model.Verification, error)
		Delete(ctx context.Context, id uuid.UUID) error
		DeleteByIdentifier(ctx context.Context, identifier string) error
		DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	}

	ClinicRepository interface {
		Create(ctx context.Context, clinic *model.Clinic) error
		Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
		// GetForUpdate also locks the row until the surrounding transaction ends.
		GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
		Update(ctx context.Context, clinic *model.Clinic) error
		Delete(ctx context.Context, id uuid.UUID) error
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Clinic, error)
	}

	MembershipRepository interface {
		Add(ctx context.Context, m *model.UserToClinic) error
		Remove(ctx context.Context, userID, clinicID uuid.UUID) error
		// ListByUser returns memberships in insertion order.
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.UserToClinic, error)
		Exists(ctx context.Context, userID, clinicID uuid.UUID) (bool, error)
		ListMembers(ctx context.Context, clinicID uuid.UUID) ([]*model.ClinicMember, error)
		CountMembers(ctx context.Context, clinicID uuid.UUID) (int, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Doctor, error)
		// GetForUpdate also locks the row until the surrounding transaction ends.
		GetForUpdate(ctx context.Context, clinicID, id uuid.UUID) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		Delete(ctx context.Context, clinicID, id uuid.UUID) error
		List(ctx context.Context, clinicID uuid.UUID) ([]*model.Doctor, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, clinicID, id uuid.UUID) error
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, clinicID, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// DoctorBooked reports whether the doctor already has an appointment at
		// exactly date, ignoring excludeID when set.
		DoctorBooked(ctx context.Context, doctorID uuid.UUID, date time.Time, excludeID *uuid.UUID) (bool, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending locks up to limit pending rows for the surrounding transaction.
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		RecordFailure(ctx context.Context, id uuid.UUID, errMsg string, maxAttempts int) error
		CountPending(ctx context.Context) (int, error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
