package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type fakeMemberships struct {
	repository.MembershipRepository
	listFn func(userID uuid.UUID) ([]*model.UserToClinic, error)
}

func (f *fakeMemberships) ListByUser(_ context.Context, userID uuid.UUID) ([]*model.UserToClinic, error) {
	return f.listFn(userID)
}

type fakeClinics struct {
	repository.ClinicRepository
	clinics []*model.Clinic
}

func (f *fakeClinics) ListByUser(context.Context, uuid.UUID) ([]*model.Clinic, error) {
	return f.clinics, nil
}

func sessionFor(name, email string) *model.SessionWithUser {
	return &model.SessionWithUser{
		Session: &model.Session{},
		User:    &model.User{Base: model.Base{ID: uuid.New()}, Name: name, Email: email},
	}
}

func TestResolveWithoutSessionRedirectsToAuthentication(t *testing.T) {
	svc := NewService(&fakeMemberships{}, &fakeClinics{})

	d, err := svc.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StateUnauthenticated, d.State)
	assert.Equal(t, "/authentication", d.Redirect)
	assert.Nil(t, d.View)
}

func TestResolveWithoutMembershipRedirectsToClinicForm(t *testing.T) {
	memberships := &fakeMemberships{listFn: func(uuid.UUID) ([]*model.UserToClinic, error) {
		return []*model.UserToClinic{}, nil
	}}
	svc := NewService(memberships, &fakeClinics{})

	d, err := svc.Resolve(context.Background(), sessionFor("Ana", "ana@example.com"))
	require.NoError(t, err)
	assert.Equal(t, StateNeedsClinic, d.State)
	assert.Equal(t, "/clinic-form", d.Redirect)
}

func TestResolveReadyShowsStoredNameAndEmail(t *testing.T) {
	clinicID := uuid.New()
	memberships := &fakeMemberships{listFn: func(uuid.UUID) ([]*model.UserToClinic, error) {
		return []*model.UserToClinic{{ClinicID: clinicID}}, nil
	}}
	svc := NewService(memberships, &fakeClinics{clinics: []*model.Clinic{{Base: model.Base{ID: clinicID}, Name: "North"}}})

	d, err := svc.Resolve(context.Background(), sessionFor("  Ana <Lima> ", "Ana@Example.com"))
	require.NoError(t, err)
	assert.Equal(t, StateReady, d.State)
	assert.Empty(t, d.Redirect)
	require.NotNil(t, d.View)
	assert.Equal(t, "  Ana <Lima> ", d.View.UserName)
	assert.Equal(t, "Ana@Example.com", d.View.UserEmail)
	assert.Equal(t, []uuid.UUID{clinicID}, d.View.ClinicIDs)
}

func TestResolveListsEachClinicOnce(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	var askedFor uuid.UUID
	memberships := &fakeMemberships{listFn: func(userID uuid.UUID) ([]*model.UserToClinic, error) {
		askedFor = userID
		return []*model.UserToClinic{
			{UserID: userID, ClinicID: first},
			{UserID: userID, ClinicID: second},
		}, nil
	}}
	svc := NewService(memberships, &fakeClinics{})

	session := sessionFor("Ana", "ana@example.com")
	d, err := svc.Resolve(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, session.User.ID, askedFor)
	assert.Equal(t, []uuid.UUID{first, second}, d.View.ClinicIDs)
}

func TestClinicIDsDropsDuplicates(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	got := clinicIDs([]*model.UserToClinic{{ClinicID: a}, {ClinicID: b}, {ClinicID: a}})
	assert.Equal(t, []uuid.UUID{a, b}, got)
}

func TestResolvePropagatesLookupErrors(t *testing.T) {
	memberships := &fakeMemberships{listFn: func(uuid.UUID) ([]*model.UserToClinic, error) {
		return nil, errors.New("connection reset")
	}}
	svc := NewService(memberships, &fakeClinics{})

	_, err := svc.Resolve(context.Background(), sessionFor("Ana", "ana@example.com"))
	assert.ErrorContains(t, err, "connection reset")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "needs_clinic", StateNeedsClinic.String())
	assert.Equal(t, "State(7)", State(7).String())
}
