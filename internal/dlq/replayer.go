package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fluxgate-io/fluxgate/internal/metrics"
	"github.com/fluxgate-io/fluxgate/internal/models"
	"github.com/fluxgate-io/fluxgate/pkg/logging"
)

// Deliverer resends a translated batch to the sink.
type Deliverer interface {
	DeliverBatch(ctx context.Context, events []*models.TranslatedEvent, appID, correlationID string) (int, error)
}

// Replayer periodically re-attempts pending dead-letter entries.
type Replayer struct {
	store    Store
	delivery Deliverer
	interval time.Duration
	batch    int
	logger   *logging.Logger
}

// NewReplayer creates a replayer draining up to batch entries per pass.
func NewReplayer(store Store, delivery Deliverer, interval time.Duration, batch int, logger *logging.Logger) *Replayer {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 50
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Replayer{
		store:    store,
		delivery: delivery,
		interval: interval,
		batch:    batch,
		logger:   logger,
	}
}

// Run replays pending entries on the configured interval until ctx is
// cancelled.
func (r *Replayer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			replayed, failed, err := r.ReplayOnce(ctx, "")
			if err != nil {
				r.logger.ErrorContext(ctx, "dlq replay pass failed", logging.Error(err))
				continue
			}
			if replayed > 0 || failed > 0 {
				r.logger.InfoContext(ctx, "dlq replay pass complete",
					"replayed", replayed,
					"failed", failed,
				)
			}
		}
	}
}

// ReplayOnce re-attempts pending entries, oldest first, optionally scoped to
// one app. Entries without a recorded translated batch are skipped with a
// failure note; their side effects cannot be safely reconstructed from the
// raw input alone.
func (r *Replayer) ReplayOnce(ctx context.Context, appID string) (replayed, failed int, err error) {
	entries, err := r.store.Pending(ctx, appID, r.batch)
	if err != nil {
		return 0, 0, fmt.Errorf("load pending entries: %w", err)
	}

	for _, entry := range entries {
		if err := r.replayEntry(ctx, entry); err != nil {
			failed++
			metrics.DLQReplays.WithLabelValues("failed").Inc()
			if recordErr := r.store.RecordFailure(ctx, entry.ID, err.Error()); recordErr != nil {
				r.logger.ErrorContext(ctx, "failed to record replay failure",
					logging.CorrelationID(entry.CorrelationID),
					logging.Error(recordErr),
				)
			}
			continue
		}

		if markErr := r.store.MarkProcessed(ctx, entry.ID); markErr != nil {
			r.logger.ErrorContext(ctx, "failed to mark entry processed",
				logging.CorrelationID(entry.CorrelationID),
				logging.Error(markErr),
			)
			continue
		}
		replayed++
		metrics.DLQReplays.WithLabelValues("replayed").Inc()
	}

	return replayed, failed, nil
}

func (r *Replayer) replayEntry(ctx context.Context, entry *Entry) error {
	if len(entry.Events) == 0 {
		return fmt.Errorf("entry has no recorded delivery batch")
	}

	var events []*models.TranslatedEvent
	if err := json.Unmarshal(entry.Events, &events); err != nil {
		return fmt.Errorf("decode recorded batch: %w", err)
	}

	if _, err := r.delivery.DeliverBatch(ctx, events, entry.AppID, entry.CorrelationID); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "replayed dead-letter entry",
		logging.CorrelationID(entry.CorrelationID),
		logging.AppID(entry.AppID),
		"retry_count", entry.RetryCount,
	)
	return nil
}
