package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type noTx struct{}

func (noTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type fakeUsers struct {
	repository.UserRepository
	getFn    func(id uuid.UUID) (*model.User, error)
	updated  *model.User
	deleteFn func(id uuid.UUID) error
}

func (f *fakeUsers) Get(_ context.Context, id uuid.UUID) (*model.User, error) { return f.getFn(id) }

func (f *fakeUsers) Update(_ context.Context, u *model.User) error {
	f.updated = u
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error { return f.deleteFn(id) }

type fakeEmitter struct {
	types []string
}

func (f *fakeEmitter) Emit(_ context.Context, eventType, _ string, _ uuid.UUID, _ interface{}) error {
	f.types = append(f.types, eventType)
	return nil
}

func strPtr(s string) *string { return &s }

func TestUpdateUser(t *testing.T) {
	id := uuid.New()
	repo := &fakeUsers{getFn: func(uuid.UUID) (*model.User, error) {
		return &model.User{Base: model.Base{ID: id}, Name: "Old", Image: strPtr("http://img/old.png")}, nil
	}}
	svc := NewService(noTx{}, repo, &fakeEmitter{})

	got, err := svc.UpdateUser(context.Background(), id, &model.UpdateUserRequest{Name: strPtr("  New Name "), Image: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
	assert.Nil(t, got.Image)
	assert.Same(t, got, repo.updated)

	_, err = svc.UpdateUser(context.Background(), id, &model.UpdateUserRequest{Name: strPtr("   ")})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestGetUserNotFound(t *testing.T) {
	repo := &fakeUsers{getFn: func(uuid.UUID) (*model.User, error) { return nil, apperrors.NotFound("user", nil) }}
	svc := NewService(noTx{}, repo, &fakeEmitter{})

	_, err := svc.GetUser(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteUserEmitsEvent(t *testing.T) {
	var deleted uuid.UUID
	repo := &fakeUsers{deleteFn: func(id uuid.UUID) error {
		deleted = id
		return nil
	}}
	events := &fakeEmitter{}
	svc := NewService(noTx{}, repo, events)

	id := uuid.New()
	require.NoError(t, svc.DeleteUser(context.Background(), id))
	assert.Equal(t, id, deleted)
	assert.Equal(t, []string{"user.deleted"}, events.types)
}
