// Package gateway orchestrates the ingress pipeline: trust gate, idempotency
// wrapper, and the normalize, filter, translate, deliver chain, with the
// dead-letter store as the fallback for everything except security errors.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fluxgate-io/fluxgate/internal/audit"
	"github.com/fluxgate-io/fluxgate/internal/dlq"
	"github.com/fluxgate-io/fluxgate/internal/faults"
	"github.com/fluxgate-io/fluxgate/internal/idempotency"
	"github.com/fluxgate-io/fluxgate/internal/metrics"
	"github.com/fluxgate-io/fluxgate/internal/middleware"
	"github.com/fluxgate-io/fluxgate/internal/models"
	"github.com/fluxgate-io/fluxgate/internal/trust"
	"github.com/fluxgate-io/fluxgate/pkg/logging"
)

// OutcomePublisher emits the outcome of a completed ingress call. Satisfied
// by *audit.Publisher; implementations must never fail the caller.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, outcome *audit.OutcomeEvent)
}

// Gateway is the single entry point for external events.
type Gateway struct {
	trust     trust.Gate
	chain     *Chain
	idem      idempotency.Wrapper
	store     dlq.Store
	signer    *audit.Signer
	publisher OutcomePublisher
	collector *metrics.Collector
	logger    *logging.Logger
}

// New constructs a gateway. signer, publisher, and collector may be nil;
// the corresponding step is skipped.
func New(gate trust.Gate, chain *Chain, idem idempotency.Wrapper, store dlq.Store, signer *audit.Signer, publisher OutcomePublisher, collector *metrics.Collector, logger *logging.Logger) *Gateway {
	if logger == nil {
		logger = logging.Default()
	}
	return &Gateway{
		trust:     gate,
		chain:     chain,
		idem:      idem,
		store:     store,
		signer:    signer,
		publisher: publisher,
		collector: collector,
		logger:    logger,
	}
}

// Ingest runs one raw input through the full pipeline and returns the
// outcome. A blocked identity fails with a DEVICE_BLOCKED security error
// before any downstream call; every non-security failure is buffered to the
// dead-letter store and reported as status buffered.
func (g *Gateway) Ingest(ctx context.Context, input *models.RawInput) (*models.IngestResult, error) {
	start := time.Now()

	correlationID := middleware.GetCorrelationID(ctx)
	if correlationID == "" {
		correlationID = uuid.New().String()
		ctx = middleware.WithCorrelationID(ctx, correlationID)
	}

	identity := input.Identity()
	status, err := g.trust.Check(ctx, identity)
	if err != nil {
		result := g.buffer(ctx, correlationID, input, nil, models.LaneGreen,
			fmt.Errorf("trust check: %w", err), start)
		g.finish(ctx, result, input.Kind)
		return result, nil
	}
	if status == trust.StatusBlocked {
		g.logger.WarnContext(ctx, "blocked identity rejected",
			logging.CorrelationID(correlationID),
			logging.UserID(identity),
		)
		g.finish(ctx, &models.IngestResult{
			CorrelationID: correlationID,
			Status:        models.StatusBlocked,
			LatencyMS:     time.Since(start).Milliseconds(),
			RiskLane:      models.LaneGreen,
		}, input.Kind)
		return nil, faults.NewSecurityError(faults.CodeDeviceBlocked,
			fmt.Sprintf("identity %s is blocked", identity))
	}
	forceRed := status == trust.StatusSuspect

	result, err := g.idem.Do(ctx, IdempotencyKey(input), func(ctx context.Context) (*models.IngestResult, error) {
		return g.run(ctx, correlationID, input, forceRed, start)
	})
	if err != nil {
		return nil, err
	}

	g.finish(ctx, result, input.Kind)
	return result, nil
}

// run executes the pipeline once per idempotency key. Security errors
// propagate; anything else is converted to a buffered outcome so every
// caller sharing the key observes the same recorded result.
func (g *Gateway) run(ctx context.Context, correlationID string, input *models.RawInput, forceRed bool, start time.Time) (*models.IngestResult, error) {
	event, err := g.chain.Normalize(ctx, correlationID, input, forceRed)
	if err != nil {
		if faults.IsSecurity(err) {
			return nil, err
		}
		lane := models.LaneGreen
		if forceRed {
			lane = models.LaneRed
		}
		return g.buffer(ctx, correlationID, input, nil, lane, err, start), nil
	}

	delivered, err := g.chain.Dispatch(ctx, event)
	if err != nil {
		var failure *DeliveryFailure
		if errors.As(err, &failure) {
			return g.bufferEvent(ctx, correlationID, input, event, failure, start), nil
		}
		return g.bufferEvent(ctx, correlationID, input, event, &DeliveryFailure{Err: err}, start), nil
	}

	g.logger.InfoContext(ctx, "ingest complete",
		logging.CorrelationID(correlationID),
		logging.SourceType(string(input.Kind)),
		logging.RiskLane(string(event.Metadata.RiskLane)),
		"delivered", delivered,
	)

	return &models.IngestResult{
		CorrelationID: correlationID,
		Status:        models.StatusAccepted,
		LatencyMS:     time.Since(start).Milliseconds(),
		RiskLane:      event.Metadata.RiskLane,
	}, nil
}

// bufferEvent records a delivery-stage failure, keeping the translated batch
// alongside the raw input so replay can resend without re-running the
// pipeline.
func (g *Gateway) bufferEvent(ctx context.Context, correlationID string, input *models.RawInput, event *models.CanonicalEvent, failure *DeliveryFailure, start time.Time) *models.IngestResult {
	var events json.RawMessage
	if len(failure.Events) > 0 {
		if data, err := json.Marshal(failure.Events); err == nil {
			events = data
		}
	}
	return g.buffer(ctx, correlationID, input, eventEntryInfo(event, events, failure.AppID),
		event.Metadata.RiskLane, failure, start)
}

// entryInfo carries the event-derived fields of a dead-letter entry.
type entryInfo struct {
	events        json.RawMessage
	appID         string
	intents       []string
	lowConfidence bool
}

func eventEntryInfo(event *models.CanonicalEvent, events json.RawMessage, appID string) *entryInfo {
	info := &entryInfo{
		events:  events,
		appID:   appID,
		intents: event.Metadata.DetectedIntents,
	}
	if v, ok := event.Metadata.Extra["low_confidence"].(bool); ok {
		info.lowConfidence = v
	}
	return info
}

// buffer writes a dead-letter entry and returns the buffered result. A
// failed write is logged and swallowed; the dead-letter store is a safety
// net, never a required dependency of the ingestion path.
func (g *Gateway) buffer(ctx context.Context, correlationID string, input *models.RawInput, info *entryInfo, lane models.RiskLane, cause error, start time.Time) *models.IngestResult {
	if info == nil {
		info = &entryInfo{}
	}

	raw, marshalErr := json.Marshal(input)
	if marshalErr != nil {
		g.logger.ErrorContext(ctx, "failed to serialize raw input for dead-letter entry",
			logging.CorrelationID(correlationID),
			logging.Error(marshalErr),
		)
	}

	entry := &dlq.Entry{
		ID:            uuid.New().String(),
		CorrelationID: correlationID,
		AppID:         info.appID,
		RawInput:      raw,
		Events:        info.events,
		ErrorReason:   cause.Error(),
		Status:        dlq.StatusPending,
		RiskScore:     dlq.Score(lane, info.intents, input.Kind, info.lowConfidence),
		SourceType:    string(input.Kind),
		UserID:        input.Identity(),
		CreatedAt:     time.Now().UTC(),
	}
	if g.signer != nil {
		entry.Signature = g.signer.Sign(entry.CorrelationID, entry.CreatedAt, entry.RawInput)
	}

	if err := g.store.Append(ctx, entry); err != nil {
		g.logger.ErrorContext(ctx, "dead-letter write failed",
			logging.CorrelationID(correlationID),
			logging.Error(err),
		)
	} else {
		metrics.DLQWrites.Inc()
	}

	g.logger.WarnContext(ctx, "ingest buffered after pipeline failure",
		logging.CorrelationID(correlationID),
		logging.SourceType(string(input.Kind)),
		"risk_score", entry.RiskScore,
		logging.Error(cause),
	)

	return &models.IngestResult{
		CorrelationID: correlationID,
		Status:        models.StatusBuffered,
		LatencyMS:     time.Since(start).Milliseconds(),
		RiskLane:      lane,
	}
}

// finish records metrics and publishes the outcome feed entry.
func (g *Gateway) finish(ctx context.Context, result *models.IngestResult, kind models.InputKind) {
	if g.collector != nil {
		g.collector.Record(result, kind)
	}
	if g.publisher != nil {
		g.publisher.PublishOutcome(ctx, &audit.OutcomeEvent{
			CorrelationID: result.CorrelationID,
			Status:        result.Status,
			RiskLane:      result.RiskLane,
			SourceType:    string(kind),
			LatencyMS:     result.LatencyMS,
			Timestamp:     time.Now().UTC(),
		})
	}
}
