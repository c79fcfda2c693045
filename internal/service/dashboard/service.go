package dashboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

// Page paths a Decision can point at.
const (
	AuthenticationPath = "/authentication"
	ClinicFormPath     = "/clinic-form"
	DashboardPath      = "/dashboard"
)

type State int

const (
	StateUnauthenticated State = iota
	StateNeedsClinic
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateNeedsClinic:
		return "needs_clinic"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// View is what the dashboard renders for a signed-in member.
type View struct {
	UserName  string          `json:"user_name"`
	UserEmail string          `json:"user_email"`
	ClinicIDs []uuid.UUID     `json:"clinic_ids"`
	Clinics   []*model.Clinic `json:"clinics"`
}

// Decision is the outcome of one dashboard request. View is set only for
// StateReady; Redirect only for the other states.
type Decision struct {
	State    State  `json:"state"`
	Redirect string `json:"redirect,omitempty"`
	View     *View  `json:"view,omitempty"`
}

type Resolver interface {
	Resolve(ctx context.Context, session *model.SessionWithUser) (*Decision, error)
}

type Service struct {
	memberships repository.MembershipRepository
	clinics     repository.ClinicRepository
}

func NewService(memberships repository.MembershipRepository, clinics repository.ClinicRepository) *Service {
	return &Service{
		memberships: memberships,
		clinics:     clinics,
	}
}

// Resolve decides where a dashboard request goes. It is evaluated on every
// request; nothing is cached.
func (s *Service) Resolve(ctx context.Context, session *model.SessionWithUser) (*Decision, error) {
	if session == nil || session.User == nil {
		return &Decision{State: StateUnauthenticated, Redirect: AuthenticationPath}, nil
	}

	memberships, err := s.memberships.ListByUser(ctx, session.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	if len(memberships) == 0 {
		return &Decision{State: StateNeedsClinic, Redirect: ClinicFormPath}, nil
	}

	clinics, err := s.clinics.ListByUser(ctx, session.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clinics: %w", err)
	}

	return &Decision{
		State: StateReady,
		View: &View{
			UserName:  session.User.Name,
			UserEmail: session.User.Email,
			ClinicIDs: clinicIDs(memberships),
			Clinics:   clinics,
		},
	}, nil
}

// clinicIDs lists each membership's clinic once, in membership order.
func clinicIDs(memberships []*model.UserToClinic) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(memberships))
	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		if _, ok := seen[m.ClinicID]; ok {
			continue
		}
		seen[m.ClinicID] = struct{}{}
		ids = append(ids, m.ClinicID)
	}
	return ids
}
