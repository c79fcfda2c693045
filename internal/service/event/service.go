package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

// Event types written to the outbox.
const (
	UserSignedUp       = "user.signed_up"
	UserDeleted        = "user.deleted"
	ClinicCreated      = "clinic.created"
	ClinicUpdated      = "clinic.updated"
	ClinicDeleted      = "clinic.deleted"
	MemberAdded        = "clinic.member_added"
	MemberRemoved      = "clinic.member_removed"
	DoctorCreated      = "doctor.created"
	DoctorUpdated      = "doctor.updated"
	DoctorDeleted      = "doctor.deleted"
	PatientCreated     = "patient.created"
	PatientUpdated     = "patient.updated"
	PatientDeleted     = "patient.deleted"
	AppointmentCreated = "appointment.created"
	AppointmentUpdated = "appointment.updated"
	AppointmentDeleted = "appointment.deleted"
)

// Emitter records domain events. Called with a transactional context, the
// event commits or rolls back with the change it describes.
type Emitter interface {
	Emit(ctx context.Context, eventType, aggregateType string, aggregateID uuid.UUID, payload interface{}) error
}

type Service struct {
	outboxRepo repository.OutboxRepository
}

func NewService(outboxRepo repository.OutboxRepository) *Service {
	return &Service{outboxRepo: outboxRepo}
}

func (s *Service) Emit(ctx context.Context, eventType, aggregateType string, aggregateID uuid.UUID, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       payloadJSON,
	}
	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}
