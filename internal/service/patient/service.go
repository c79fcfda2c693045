package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

type PatientService interface {
	CreatePatient(ctx context.Context, clinicID uuid.UUID, req *model.PatientRequest) (*model.Patient, error)
	GetPatient(ctx context.Context, clinicID, id uuid.UUID) (*model.Patient, error)
	UpdatePatient(ctx context.Context, clinicID, id uuid.UUID, req *model.PatientRequest) (*model.Patient, error)
	DeletePatient(ctx context.Context, clinicID, id uuid.UUID) error
	ListPatients(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
}

var validate = validator.New()

type Service struct {
	tx     repository.Transactor
	repo   repository.PatientRepository
	events event.Emitter
}

func NewService(tx repository.Transactor, repo repository.PatientRepository, events event.Emitter) *Service {
	return &Service{
		tx:     tx,
		repo:   repo,
		events: events,
	}
}

func (s *Service) CreatePatient(ctx context.Context, clinicID uuid.UUID, req *model.PatientRequest) (*model.Patient, error) {
	patient := &model.Patient{ClinicID: clinicID}
	req.Apply(patient)
	if err := s.validatePatient(patient); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, patient); err != nil {
			return fmt.Errorf("failed to create patient: %w", err)
		}
		return s.events.Emit(ctx, event.PatientCreated, "patient", patient.ID, map[string]interface{}{
			"clinic_id":  clinicID,
			"patient_id": patient.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, clinicID, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, clinicID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

func (s *Service) UpdatePatient(ctx context.Context, clinicID, id uuid.UUID, req *model.PatientRequest) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, clinicID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	req.Apply(patient)
	if err := s.validatePatient(patient); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, patient); err != nil {
			return fmt.Errorf("failed to update patient: %w", err)
		}
		return s.events.Emit(ctx, event.PatientUpdated, "patient", patient.ID, map[string]interface{}{
			"clinic_id":  clinicID,
			"patient_id": patient.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return patient, nil
}

// DeletePatient removes the patient and their appointments.
func (s *Service) DeletePatient(ctx context.Context, clinicID, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, clinicID, id); err != nil {
			return fmt.Errorf("failed to delete patient: %w", err)
		}
		return s.events.Emit(ctx, event.PatientDeleted, "patient", id, map[string]interface{}{
			"clinic_id":  clinicID,
			"patient_id": id,
		})
	})
}

func (s *Service) ListPatients(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	filters.Search = strings.TrimSpace(filters.Search)
	patients, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (s *Service) validatePatient(patient *model.Patient) error {
	patient.Name = strings.TrimSpace(patient.Name)
	patient.Email = strings.TrimSpace(patient.Email)
	patient.PhoneNumber = strings.TrimSpace(patient.PhoneNumber)

	if patient.Name == "" {
		return apperrors.BadRequest("patient name is required", nil)
	}
	if err := validate.Var(patient.Email, "required,email"); err != nil {
		return apperrors.BadRequest("invalid email address", err)
	}
	if patient.PhoneNumber == "" {
		return apperrors.BadRequest("phone number is required", nil)
	}
	if err := validate.Var(patient.Sex, "sex"); err != nil {
		return apperrors.BadRequest("sex must be male or female", nil)
	}
	return nil
}
