package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type noTx struct{}

func (noTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type fakeOutbox struct {
	repository.OutboxRepository
	mu        sync.Mutex
	pending   []*model.OutboxEvent
	processed []uuid.UUID
	failures  map[uuid.UUID]int
	deleted   time.Time
}

func (f *fakeOutbox) ClaimPending(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) < limit {
		limit = len(f.pending)
	}
	return f.pending[:limit], nil
}

func (f *fakeOutbox) MarkProcessed(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeOutbox) RecordFailure(_ context.Context, id uuid.UUID, _ string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures == nil {
		f.failures = map[uuid.UUID]int{}
	}
	f.failures[id]++
	return nil
}

func (f *fakeOutbox) CountPending(context.Context) (int, error) { return 0, nil }

func (f *fakeOutbox) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	f.deleted = before
	return 4, nil
}

type fakeBroker struct {
	mu        sync.Mutex
	failTimes int
	channels  []string
	calls     int
}

func (b *fakeBroker) Publish(_ context.Context, channel string, _ interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.failTimes < 0 || b.calls <= b.failTimes {
		return errors.New("broker down")
	}
	b.channels = append(b.channels, channel)
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }
func (b *fakeBroker) Close() error { return nil }

func newEvent(eventType string) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:          uuid.New(),
		EventType:   eventType,
		AggregateID: uuid.New(),
		Payload:     []byte(`{}`),
		CreatedAt:   time.Now(),
	}
}

func newProcessor(t *testing.T, repo *fakeOutbox, broker *fakeBroker) (*OutboxProcessor, *metrics.Metrics) {
	t.Helper()
	m := metrics.New("test", prometheus.NewRegistry())
	p, err := NewOutboxProcessor(noTx{}, repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		ChannelPrefix: "clinic",
	}, logger.Nop(), m)
	require.NoError(t, err)
	return p, m
}

func TestProcessBatchPublishes(t *testing.T) {
	e1, e2 := newEvent("clinic.created"), newEvent("appointment.created")
	repo := &fakeOutbox{pending: []*model.OutboxEvent{e1, e2}}
	broker := &fakeBroker{}
	p, m := newProcessor(t, repo, broker)

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, []uuid.UUID{e1.ID, e2.ID}, repo.processed)
	assert.Equal(t, []string{"clinic.clinic.created", "clinic.appointment.created"}, broker.channels)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OutboxEventsProcessed))
}

func TestProcessBatchRetriesThenSucceeds(t *testing.T) {
	e := newEvent("doctor.created")
	repo := &fakeOutbox{pending: []*model.OutboxEvent{e}}
	broker := &fakeBroker{failTimes: 2}
	p, m := newProcessor(t, repo, broker)

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, 3, broker.calls)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OutboxRetries.WithLabelValues("doctor.created")))
	assert.Empty(t, repo.failures)
}

func TestProcessBatchRecordsFailure(t *testing.T) {
	e := newEvent("patient.created")
	repo := &fakeOutbox{pending: []*model.OutboxEvent{e}}
	broker := &fakeBroker{failTimes: -1}
	p, m := newProcessor(t, repo, broker)

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Zero(t, n)
	assert.Equal(t, 3, broker.calls)
	assert.Equal(t, 1, repo.failures[e.ID])
	assert.Empty(t, repo.processed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEventsFailed))
}

func TestNewOutboxProcessorRejectsBadConfig(t *testing.T) {
	_, err := NewOutboxProcessor(noTx{}, &fakeOutbox{}, &fakeBroker{}, OutboxProcessorConfig{}, logger.Nop(), nil)
	assert.Error(t, err)
}

func TestChannelWithoutPrefix(t *testing.T) {
	p := &OutboxProcessor{}
	assert.Equal(t, "user.signed_up", p.Channel("user.signed_up"))
}

type fakeSessions struct {
	repository.SessionRepository
	before time.Time
}

func (f *fakeSessions) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.before = before
	return 2, nil
}

type fakeVerifications struct {
	repository.VerificationRepository
}

func (fakeVerifications) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, errors.New("db gone")
}

func TestExpiryCleaner(t *testing.T) {
	now := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	sessions := &fakeSessions{}
	outbox := &fakeOutbox{}
	m := metrics.New("test", prometheus.NewRegistry())

	c := NewExpiryCleaner(sessions, fakeVerifications{}, outbox, ExpiryCleanerConfig{
		Interval:        time.Hour,
		OutboxRetention: 24 * time.Hour,
	}, logger.Nop(), m)
	c.now = func() time.Time { return now }

	err := c.Cleanup(context.Background())
	assert.ErrorContains(t, err, "verifications")

	// the other steps still ran
	assert.Equal(t, now, sessions.before)
	assert.Equal(t, now.Add(-24*time.Hour), outbox.deleted)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CleanupDeleted.WithLabelValues("sessions")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CleanupDeleted.WithLabelValues("outbox_events")))
}
