package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type noTx struct{}

func (noTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type fakeAppointments struct {
	repository.AppointmentRepository
	created   *model.Appointment
	updated   *model.Appointment
	existing  *model.Appointment
	booked    bool
	excludeID *uuid.UUID

	// doctors lets DoctorBooked see which doctor rows were locked before it ran.
	doctors      *fakeDoctors
	lockedAtScan []uuid.UUID
}

func (f *fakeAppointments) Create(_ context.Context, a *model.Appointment) error {
	a.Base = model.NewBase(time.Now())
	f.created = a
	return nil
}

func (f *fakeAppointments) Get(context.Context, uuid.UUID, uuid.UUID) (*model.Appointment, error) {
	if f.existing == nil {
		return nil, apperrors.NotFound("appointment", nil)
	}
	copied := *f.existing
	return &copied, nil
}

func (f *fakeAppointments) Update(_ context.Context, a *model.Appointment) error {
	f.updated = a
	return nil
}

func (f *fakeAppointments) DoctorBooked(_ context.Context, _ uuid.UUID, _ time.Time, excludeID *uuid.UUID) (bool, error) {
	f.excludeID = excludeID
	if f.doctors != nil {
		f.lockedAtScan = append([]uuid.UUID(nil), f.doctors.locked...)
	}
	return f.booked, nil
}

type fakeDoctors struct {
	repository.DoctorRepository
	byClinic map[uuid.UUID]*model.Doctor
	locked   []uuid.UUID
}

func (f *fakeDoctors) GetForUpdate(_ context.Context, clinicID, id uuid.UUID) (*model.Doctor, error) {
	f.locked = append(f.locked, id)
	if d, ok := f.byClinic[clinicID]; ok && d.ID == id {
		return d, nil
	}
	return nil, apperrors.NotFound("doctor", nil)
}

type fakePatients struct {
	repository.PatientRepository
	byClinic map[uuid.UUID]*model.Patient
}

func (f *fakePatients) Get(_ context.Context, clinicID, id uuid.UUID) (*model.Patient, error) {
	if p, ok := f.byClinic[clinicID]; ok && p.ID == id {
		return p, nil
	}
	return nil, apperrors.NotFound("patient", nil)
}

type fakeEmitter struct {
	types []string
}

func (f *fakeEmitter) Emit(_ context.Context, eventType, _ string, _ uuid.UUID, _ interface{}) error {
	f.types = append(f.types, eventType)
	return nil
}

type fixture struct {
	svc          *Service
	appointments *fakeAppointments
	doctors      *fakeDoctors
	events       *fakeEmitter
	clinicID     uuid.UUID
	otherClinic  uuid.UUID
	doctor       *model.Doctor
	patient      *model.Patient
	foreignDoc   *model.Doctor
}

func newFixture() *fixture {
	f := &fixture{
		appointments: &fakeAppointments{},
		events:       &fakeEmitter{},
		clinicID:     uuid.New(),
		otherClinic:  uuid.New(),
	}
	window := model.Availability{FromWeekDay: 1, ToWeekDay: 5, FromTime: 9 * 60, ToTime: 17 * 60}
	f.doctor = &model.Doctor{Base: model.Base{ID: uuid.New()}, ClinicID: f.clinicID, Availability: window}
	f.foreignDoc = &model.Doctor{Base: model.Base{ID: uuid.New()}, ClinicID: f.otherClinic, Availability: window}
	f.patient = &model.Patient{Base: model.Base{ID: uuid.New()}, ClinicID: f.clinicID}

	f.doctors = &fakeDoctors{byClinic: map[uuid.UUID]*model.Doctor{f.clinicID: f.doctor, f.otherClinic: f.foreignDoc}}
	f.appointments.doctors = f.doctors
	patients := &fakePatients{byClinic: map[uuid.UUID]*model.Patient{f.clinicID: f.patient}}
	f.svc = NewService(noTx{}, f.appointments, f.doctors, patients, f.events, time.UTC)
	return f
}

// monday10 is 2030-01-07 10:00 UTC, a Monday.
var monday10 = time.Date(2030, 1, 7, 10, 0, 0, 0, time.UTC)

func TestCreateAppointment(t *testing.T) {
	f := newFixture()

	a, err := f.svc.CreateAppointment(context.Background(), f.clinicID, &model.AppointmentRequest{
		Date: monday10.In(time.FixedZone("UTC-3", -3*3600)), DoctorID: f.doctor.ID, PatientID: f.patient.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, monday10, a.Date)
	assert.Equal(t, time.UTC, a.Date.Location())
	assert.Equal(t, f.clinicID, a.ClinicID)
	assert.Same(t, a, f.appointments.created)
	assert.Equal(t, []string{"appointment.created"}, f.events.types)
	assert.Equal(t, []uuid.UUID{f.doctor.ID}, f.appointments.lockedAtScan, "doctor row is locked before the conflict check")
}

func TestCreateAppointmentRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *fixture, req *model.AppointmentRequest)
		errCode apperrors.ErrorCode
	}{
		{"doctor from another clinic", func(f *fixture, req *model.AppointmentRequest) {
			req.DoctorID = f.foreignDoc.ID
		}, apperrors.ErrBadRequest},
		{"unknown patient", func(f *fixture, req *model.AppointmentRequest) {
			req.PatientID = uuid.New()
		}, apperrors.ErrBadRequest},
		{"outside working hours", func(f *fixture, req *model.AppointmentRequest) {
			req.Date = monday10.Add(8 * time.Hour)
		}, apperrors.ErrBadRequest},
		{"weekend", func(f *fixture, req *model.AppointmentRequest) {
			req.Date = monday10.AddDate(0, 0, -1)
		}, apperrors.ErrBadRequest},
		{"doctor already booked", func(f *fixture, req *model.AppointmentRequest) {
			f.appointments.booked = true
		}, apperrors.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := &model.AppointmentRequest{Date: monday10, DoctorID: f.doctor.ID, PatientID: f.patient.ID}
			tt.mutate(f, req)

			_, err := f.svc.CreateAppointment(context.Background(), f.clinicID, req)
			assert.True(t, apperrors.Is(err, tt.errCode), "got %v", err)
			assert.Nil(t, f.appointments.created)
			assert.Empty(t, f.events.types)
		})
	}
}

func TestUpdateAppointmentExcludesItself(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.appointments.existing = &model.Appointment{
		Base: model.Base{ID: id}, Date: monday10, DoctorID: f.doctor.ID, PatientID: f.patient.ID, ClinicID: f.clinicID,
	}

	later := monday10.Add(time.Hour)
	a, err := f.svc.UpdateAppointment(context.Background(), f.clinicID, id, &model.AppointmentRequest{
		Date: later, DoctorID: f.doctor.ID, PatientID: f.patient.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, later, a.Date)
	require.NotNil(t, f.appointments.excludeID)
	assert.Equal(t, id, *f.appointments.excludeID)
	assert.Equal(t, []string{"appointment.updated"}, f.events.types)
}

func TestListAppointmentsRejectsInvertedRange(t *testing.T) {
	f := newFixture()
	from, to := monday10, monday10.Add(-time.Hour)

	_, err := f.svc.ListAppointments(context.Background(), &model.AppointmentFilters{ClinicID: f.clinicID, From: &from, To: &to})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}
