package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fluxgate-io/fluxgate/internal/models"
	"github.com/fluxgate-io/fluxgate/pkg/logging"
)

// Subject layout: fluxgate.ingest.<status>
const subjectPrefix = "fluxgate.ingest."

// OutcomeEvent is the record published for each completed ingress call.
type OutcomeEvent struct {
	CorrelationID string              `json:"correlation_id"`
	Status        models.IngestStatus `json:"status"`
	RiskLane      models.RiskLane     `json:"risk_lane"`
	SourceType    string              `json:"source_type"`
	LatencyMS     int64               `json:"latency_ms"`
	Timestamp     time.Time           `json:"timestamp"`
}

// Publisher emits ingest outcomes to NATS. Publishing is best effort: a
// failed publish is logged and never surfaces to the ingestion path.
type Publisher struct {
	conn   *nats.Conn
	logger *logging.Logger
}

// NewPublisher connects to NATS and returns a Publisher.
func NewPublisher(url string, logger *logging.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logging.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("fluxgate-audit"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &Publisher{conn: conn, logger: logger}, nil
}

// PublishOutcome emits one ingest outcome to the feed.
func (p *Publisher) PublishOutcome(ctx context.Context, outcome *OutcomeEvent) {
	if p == nil || p.conn == nil {
		return
	}

	data, err := json.Marshal(outcome)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal ingest outcome", logging.Error(err))
		return
	}

	subject := subjectPrefix + string(outcome.Status)
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.WarnContext(ctx, "failed to publish ingest outcome",
			logging.CorrelationID(outcome.CorrelationID),
			logging.Error(err),
		)
	}
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}
