// Package delivery sends translated events to the downstream sink with
// bounded retry and exponential backoff.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/fluxgate-io/fluxgate/internal/metrics"
	"github.com/fluxgate-io/fluxgate/internal/models"
	"github.com/fluxgate-io/fluxgate/pkg/logging"
)

// Service delivers event batches with per-event retry.
type Service struct {
	sink         Sink
	maxAttempts  int
	baseInterval time.Duration
	logger       *logging.Logger
}

// NewService creates a delivery service. The retry delay doubles each
// attempt starting from baseInterval.
func NewService(sink Sink, maxAttempts int, baseInterval time.Duration, logger *logging.Logger) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseInterval <= 0 {
		baseInterval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		sink:         sink,
		maxAttempts:  maxAttempts,
		baseInterval: baseInterval,
		logger:       logger,
	}
}

// DeliverBatch sends each event individually and returns the number of
// successful sends. The first event to exhaust its retries aborts the batch
// and its last error is raised to the caller.
func (s *Service) DeliverBatch(ctx context.Context, events []*models.TranslatedEvent, appID, correlationID string) (int, error) {
	delivered := 0
	for _, event := range events {
		if err := s.deliverOne(ctx, event, appID, correlationID); err != nil {
			return delivered, fmt.Errorf("deliver event %s: %w", event.EventID, err)
		}
		delivered++
	}
	return delivered, nil
}

// deliverOne retries the send with exponential backoff until success or
// attempt exhaustion.
func (s *Service) deliverOne(ctx context.Context, event *models.TranslatedEvent, appID, correlationID string) error {
	var lastErr error
	delay := s.baseInterval

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		metrics.DeliveryAttempts.Inc()
		lastErr = s.sink.Send(ctx, event, appID, correlationID)
		if lastErr == nil {
			if attempt > 1 {
				s.logger.InfoContext(ctx, "delivery succeeded after retry",
					logging.EventID(event.EventID),
					logging.Attempt(attempt),
				)
			}
			return nil
		}

		s.logger.WarnContext(ctx, "delivery attempt failed",
			logging.EventID(event.EventID),
			logging.AppID(appID),
			logging.Attempt(attempt),
			logging.Error(lastErr),
		)

		if attempt == s.maxAttempts {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}

	metrics.DeliveryFailures.Inc()
	return lastErr
}
