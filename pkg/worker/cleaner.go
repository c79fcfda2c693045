package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type ExpiryCleanerConfig struct {
	Interval        time.Duration
	OutboxRetention time.Duration
}

// ExpiryCleaner deletes expired sessions and verifications, and processed
// outbox events older than the retention window.
type ExpiryCleaner struct {
	sessions      repository.SessionRepository
	verifications repository.VerificationRepository
	outbox        repository.OutboxRepository
	config        ExpiryCleanerConfig
	logger        *logger.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

func NewExpiryCleaner(
	sessions repository.SessionRepository,
	verifications repository.VerificationRepository,
	outbox repository.OutboxRepository,
	config ExpiryCleanerConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *ExpiryCleaner {
	return &ExpiryCleaner{
		sessions:      sessions,
		verifications: verifications,
		outbox:        outbox,
		config:        config,
		logger:        logger,
		metrics:       metrics,
		now:           time.Now,
	}
}

func (w *ExpiryCleaner) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Cleanup(ctx); err != nil {
				w.logger.Error(err, "Expiry cleanup failed")
			}
		}
	}
}

// Cleanup runs every deletion once. It keeps going after a failure and
// returns the first error.
func (w *ExpiryCleaner) Cleanup(ctx context.Context) error {
	now := w.now()

	steps := []struct {
		kind string
		run  func() (int64, error)
	}{
		{"sessions", func() (int64, error) { return w.sessions.DeleteExpired(ctx, now) }},
		{"verifications", func() (int64, error) { return w.verifications.DeleteExpired(ctx, now) }},
		{"outbox_events", func() (int64, error) {
			return w.outbox.DeleteProcessedBefore(ctx, now.Add(-w.config.OutboxRetention))
		}},
	}

	var firstErr error
	for _, step := range steps {
		n, err := step.run()
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to clean up %s: %w", step.kind, err)
			}
			continue
		}
		w.metrics.CleanupDeleted.WithLabelValues(step.kind).Add(float64(n))
		if n > 0 {
			w.logger.Info("Cleaned up expired rows", "kind", step.kind, "count", n)
		}
	}
	return firstErr
}
