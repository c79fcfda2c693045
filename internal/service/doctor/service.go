package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type DoctorServicer interface {
	CreateDoctor(ctx context.Context, clinicID uuid.UUID, req *model.DoctorRequest) (*model.Doctor, error)
	GetDoctor(ctx context.Context, clinicID, id uuid.UUID) (*model.Doctor, error)
	UpdateDoctor(ctx context.Context, clinicID, id uuid.UUID, req *model.DoctorRequest) (*model.Doctor, error)
	DeleteDoctor(ctx context.Context, clinicID, id uuid.UUID) error
	ListDoctors(ctx context.Context, clinicID uuid.UUID) ([]*model.Doctor, error)
	AvailableSlots(ctx context.Context, clinicID, id uuid.UUID, date time.Time) ([]model.Slot, error)
}

type Config struct {
	// Location is the clinic time zone availability windows are read in.
	Location *time.Location
	SlotSize time.Duration
}

type Service struct {
	tx           repository.Transactor
	repo         repository.DoctorRepository
	appointments repository.AppointmentRepository
	events       event.Emitter
	config       Config
}

func NewService(
	tx repository.Transactor,
	repo repository.DoctorRepository,
	appointments repository.AppointmentRepository,
	events event.Emitter,
	config Config,
) *Service {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.SlotSize <= 0 {
		config.SlotSize = 30 * time.Minute
	}
	return &Service{
		tx:           tx,
		repo:         repo,
		appointments: appointments,
		events:       events,
		config:       config,
	}
}

func (s *Service) CreateDoctor(ctx context.Context, clinicID uuid.UUID, req *model.DoctorRequest) (*model.Doctor, error) {
	doctor := &model.Doctor{ClinicID: clinicID}
	req.Apply(doctor)
	if err := s.validateDoctor(doctor); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doctor); err != nil {
			return fmt.Errorf("failed to create doctor: %w", err)
		}
		return s.events.Emit(ctx, event.DoctorCreated, "doctor", doctor.ID, doctor)
	})
	if err != nil {
		return nil, err
	}
	return doctor, nil
}

func (s *Service) GetDoctor(ctx context.Context, clinicID, id uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.repo.Get(ctx, clinicID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return doctor, nil
}

func (s *Service) UpdateDoctor(ctx context.Context, clinicID, id uuid.UUID, req *model.DoctorRequest) (*model.Doctor, error) {
	var doctor *model.Doctor
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		doctor, err = s.repo.GetForUpdate(ctx, clinicID, id)
		if err != nil {
			return fmt.Errorf("failed to get doctor: %w", err)
		}

		req.Apply(doctor)
		if err := s.validateDoctor(doctor); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, doctor); err != nil {
			return fmt.Errorf("failed to update doctor: %w", err)
		}
		return s.events.Emit(ctx, event.DoctorUpdated, "doctor", doctor.ID, doctor)
	})
	if err != nil {
		return nil, err
	}
	return doctor, nil
}

// DeleteDoctor removes the doctor and their appointments.
func (s *Service) DeleteDoctor(ctx context.Context, clinicID, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, clinicID, id); err != nil {
			return fmt.Errorf("failed to delete doctor: %w", err)
		}
		return s.events.Emit(ctx, event.DoctorDeleted, "doctor", id, map[string]interface{}{
			"clinic_id": clinicID,
			"doctor_id": id,
		})
	})
}

func (s *Service) ListDoctors(ctx context.Context, clinicID uuid.UUID) ([]*model.Doctor, error) {
	doctors, err := s.repo.List(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

// AvailableSlots lists the doctor's slots on date's calendar day in the
// clinic time zone. Slots that already hold an appointment are marked
// unavailable.
func (s *Service) AvailableSlots(ctx context.Context, clinicID, id uuid.UUID, date time.Time) ([]model.Slot, error) {
	doctor, err := s.repo.Get(ctx, clinicID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}

	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, s.config.Location)
	starts := doctor.Slots(day, s.config.SlotSize)
	if len(starts) == 0 {
		return []model.Slot{}, nil
	}

	from, to := day, day.AddDate(0, 0, 1)
	booked, err := s.appointments.List(ctx, &model.AppointmentFilters{
		ClinicID: clinicID,
		DoctorID: &doctor.ID,
		From:     &from,
		To:       &to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	slots := make([]model.Slot, 0, len(starts))
	for _, start := range starts {
		end := start.Add(s.config.SlotSize)
		slot := model.Slot{Start: start, End: end, Available: true}
		for _, a := range booked {
			if !a.Date.Before(start) && a.Date.Before(end) {
				slot.Available = false
				break
			}
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func (s *Service) validateDoctor(doctor *model.Doctor) error {
	doctor.Name = strings.TrimSpace(doctor.Name)
	doctor.Specialty = strings.TrimSpace(doctor.Specialty)

	if doctor.Name == "" {
		return apperrors.BadRequest("doctor name is required", nil)
	}
	if doctor.Specialty == "" {
		return apperrors.BadRequest("specialty is required", nil)
	}
	if doctor.AppointmentPriceInCents < 0 {
		return apperrors.BadRequest("appointment price cannot be negative", nil)
	}
	if err := doctor.Availability.Validate(); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	return nil
}
