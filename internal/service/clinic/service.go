package clinic

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type ClinicServicer interface {
	CreateClinic(ctx context.Context, userID uuid.UUID, req *model.CreateClinicRequest) (*model.Clinic, error)
	GetClinic(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
	UpdateClinic(ctx context.Context, id uuid.UUID, req *model.UpdateClinicRequest) (*model.Clinic, error)
	DeleteClinic(ctx context.Context, id uuid.UUID) error
	ListUserClinics(ctx context.Context, userID uuid.UUID) ([]*model.Clinic, error)
	IsMember(ctx context.Context, userID, clinicID uuid.UUID) (bool, error)
	ListMembers(ctx context.Context, clinicID uuid.UUID) ([]*model.ClinicMember, error)
	AddMember(ctx context.Context, clinicID uuid.UUID, email string) (*model.UserToClinic, error)
	RemoveMember(ctx context.Context, clinicID, userID uuid.UUID) error
}

type Service struct {
	tx          repository.Transactor
	repo        repository.ClinicRepository
	memberships repository.MembershipRepository
	users       repository.UserRepository
	events      event.Emitter
}

func NewService(
	tx repository.Transactor,
	repo repository.ClinicRepository,
	memberships repository.MembershipRepository,
	users repository.UserRepository,
	events event.Emitter,
) *Service {
	return &Service{
		tx:          tx,
		repo:        repo,
		memberships: memberships,
		users:       users,
		events:      events,
	}
}

// CreateClinic stores the clinic and makes userID its first member.
func (s *Service) CreateClinic(ctx context.Context, userID uuid.UUID, req *model.CreateClinicRequest) (*model.Clinic, error) {
	clinic := &model.Clinic{
		Name:    strings.TrimSpace(req.Name),
		Address: trimOptional(req.Address),
	}
	if err := s.validateClinic(clinic); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, clinic); err != nil {
			return fmt.Errorf("failed to create clinic: %w", err)
		}
		if err := s.memberships.Add(ctx, &model.UserToClinic{UserID: userID, ClinicID: clinic.ID}); err != nil {
			return fmt.Errorf("failed to add clinic creator: %w", err)
		}
		return s.events.Emit(ctx, event.ClinicCreated, "clinic", clinic.ID, map[string]interface{}{
			"clinic_id":  clinic.ID,
			"name":       clinic.Name,
			"created_by": userID,
		})
	})
	if err != nil {
		return nil, err
	}
	return clinic, nil
}

func (s *Service) GetClinic(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	clinic, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}
	return clinic, nil
}

func (s *Service) UpdateClinic(ctx context.Context, id uuid.UUID, req *model.UpdateClinicRequest) (*model.Clinic, error) {
	var clinic *model.Clinic
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		clinic, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get clinic: %w", err)
		}

		if req.Name != nil {
			clinic.Name = strings.TrimSpace(*req.Name)
		}
		if req.Address != nil {
			clinic.Address = trimOptional(req.Address)
		}
		if err := s.validateClinic(clinic); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, clinic); err != nil {
			return fmt.Errorf("failed to update clinic: %w", err)
		}
		return s.events.Emit(ctx, event.ClinicUpdated, "clinic", clinic.ID, clinic)
	})
	if err != nil {
		return nil, err
	}
	return clinic, nil
}

// DeleteClinic removes the clinic with its doctors, patients, appointments
// and memberships.
func (s *Service) DeleteClinic(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete clinic: %w", err)
		}
		return s.events.Emit(ctx, event.ClinicDeleted, "clinic", id, map[string]interface{}{"clinic_id": id})
	})
}

// ListUserClinics returns the user's clinics in membership order.
func (s *Service) ListUserClinics(ctx context.Context, userID uuid.UUID) ([]*model.Clinic, error) {
	clinics, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clinics: %w", err)
	}
	return clinics, nil
}

func (s *Service) IsMember(ctx context.Context, userID, clinicID uuid.UUID) (bool, error) {
	ok, err := s.memberships.Exists(ctx, userID, clinicID)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return ok, nil
}

func (s *Service) ListMembers(ctx context.Context, clinicID uuid.UUID) ([]*model.ClinicMember, error) {
	members, err := s.memberships.ListMembers(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// AddMember adds the user registered under email to the clinic.
func (s *Service) AddMember(ctx context.Context, clinicID uuid.UUID, email string) (*model.UserToClinic, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	membership := &model.UserToClinic{UserID: user.ID, ClinicID: clinicID}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.memberships.Add(ctx, membership); err != nil {
			if apperrors.Is(err, apperrors.ErrConflict) {
				return apperrors.Conflict("user is already a member of this clinic", err)
			}
			return fmt.Errorf("failed to add member: %w", err)
		}
		return s.events.Emit(ctx, event.MemberAdded, "clinic", clinicID, membership)
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// RemoveMember drops a membership. The last member of a clinic cannot leave;
// delete the clinic instead. The clinic row stays locked from the count to
// the delete so concurrent removals cannot empty it.
func (s *Service) RemoveMember(ctx context.Context, clinicID, userID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetForUpdate(ctx, clinicID); err != nil {
			return fmt.Errorf("failed to lock clinic: %w", err)
		}

		count, err := s.memberships.CountMembers(ctx, clinicID)
		if err != nil {
			return fmt.Errorf("failed to count members: %w", err)
		}
		if count <= 1 {
			return apperrors.BadRequest("cannot remove the last member of a clinic", nil)
		}

		if err := s.memberships.Remove(ctx, userID, clinicID); err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		return s.events.Emit(ctx, event.MemberRemoved, "clinic", clinicID, map[string]interface{}{
			"clinic_id": clinicID,
			"user_id":   userID,
		})
	})
}

func (s *Service) validateClinic(clinic *model.Clinic) error {
	if clinic.Name == "" {
		return apperrors.BadRequest("clinic name is required", nil)
	}
	if len(clinic.Name) > 255 {
		return apperrors.BadRequest("clinic name must be at most 255 characters", nil)
	}
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
