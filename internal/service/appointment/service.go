package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type AppointmentServicer interface {
	CreateAppointment(ctx context.Context, clinicID uuid.UUID, req *model.AppointmentRequest) (*model.Appointment, error)
	GetAppointment(ctx context.Context, clinicID, id uuid.UUID) (*model.Appointment, error)
	UpdateAppointment(ctx context.Context, clinicID, id uuid.UUID, req *model.AppointmentRequest) (*model.Appointment, error)
	DeleteAppointment(ctx context.Context, clinicID, id uuid.UUID) error
	ListAppointments(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
}

type Service struct {
	tx       repository.Transactor
	repo     repository.AppointmentRepository
	doctors  repository.DoctorRepository
	patients repository.PatientRepository
	events   event.Emitter
	location *time.Location
}

// NewService builds the service. loc is the clinic time zone doctor
// availability is evaluated in.
func NewService(
	tx repository.Transactor,
	repo repository.AppointmentRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	events event.Emitter,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		tx:       tx,
		repo:     repo,
		doctors:  doctors,
		patients: patients,
		events:   events,
		location: loc,
	}
}

func (s *Service) CreateAppointment(ctx context.Context, clinicID uuid.UUID, req *model.AppointmentRequest) (*model.Appointment, error) {
	appointment := &model.Appointment{
		Date:      req.Date.UTC(),
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		ClinicID:  clinicID,
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.validateAppointment(ctx, appointment, nil); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, appointment); err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}
		return s.events.Emit(ctx, event.AppointmentCreated, "appointment", appointment.ID, appointment)
	})
	if err != nil {
		return nil, err
	}
	return appointment, nil
}

func (s *Service) GetAppointment(ctx context.Context, clinicID, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.repo.Get(ctx, clinicID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appointment, nil
}

func (s *Service) UpdateAppointment(ctx context.Context, clinicID, id uuid.UUID, req *model.AppointmentRequest) (*model.Appointment, error) {
	var appointment *model.Appointment
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		appointment, err = s.repo.Get(ctx, clinicID, id)
		if err != nil {
			return fmt.Errorf("failed to get appointment: %w", err)
		}

		appointment.Date = req.Date.UTC()
		appointment.DoctorID = req.DoctorID
		appointment.PatientID = req.PatientID
		if err := s.validateAppointment(ctx, appointment, &appointment.ID); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, appointment); err != nil {
			return fmt.Errorf("failed to update appointment: %w", err)
		}
		return s.events.Emit(ctx, event.AppointmentUpdated, "appointment", appointment.ID, appointment)
	})
	if err != nil {
		return nil, err
	}
	return appointment, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, clinicID, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, clinicID, id); err != nil {
			return fmt.Errorf("failed to delete appointment: %w", err)
		}
		return s.events.Emit(ctx, event.AppointmentDeleted, "appointment", id, map[string]interface{}{
			"clinic_id":      clinicID,
			"appointment_id": id,
		})
	})
}

func (s *Service) ListAppointments(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if filters.From != nil && filters.To != nil && !filters.From.Before(*filters.To) {
		return nil, apperrors.BadRequest("from must be before to", nil)
	}
	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// validateAppointment applies the rules the schema leaves out: doctor and
// patient belong to the appointment's clinic, the doctor works at that time,
// and the doctor has nothing else booked at the same instant. It runs inside
// a transaction and locks the doctor row, so bookings for one doctor are
// checked one at a time.
func (s *Service) validateAppointment(ctx context.Context, a *model.Appointment, excludeID *uuid.UUID) error {
	if a.Date.IsZero() {
		return apperrors.BadRequest("date is required", nil)
	}

	doctor, err := s.doctors.GetForUpdate(ctx, a.ClinicID, a.DoctorID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.BadRequest("doctor does not belong to this clinic", err)
		}
		return fmt.Errorf("failed to get doctor: %w", err)
	}

	if _, err := s.patients.Get(ctx, a.ClinicID, a.PatientID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.BadRequest("patient does not belong to this clinic", err)
		}
		return fmt.Errorf("failed to get patient: %w", err)
	}

	if !doctor.Covers(a.Date, s.location) {
		return apperrors.BadRequest(model.ErrNotAvailableTime.Error(), model.ErrNotAvailableTime)
	}

	booked, err := s.repo.DoctorBooked(ctx, a.DoctorID, a.Date, excludeID)
	if err != nil {
		return err
	}
	if booked {
		return apperrors.Conflict("doctor already has an appointment at that time", nil)
	}
	return nil
}
