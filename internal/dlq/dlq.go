// Package dlq is the durable buffer for deliveries that exhausted retries,
// and the replayer that periodically drains it.
package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fluxgate-io/fluxgate/internal/models"
)

// Entry statuses.
const (
	StatusPending   = "pending"
	StatusReplaying = "replaying"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// ErrEntryNotFound is returned when an entry ID does not exist.
var ErrEntryNotFound = errors.New("dlq entry not found")

// Entry is one durably buffered failed delivery. RawInput always carries the
// original input; Events additionally carries the translated batch when the
// failure happened at the delivery stage, so replay can resend without
// re-running the pipeline.
type Entry struct {
	ID            string          `json:"id"`
	CorrelationID string          `json:"correlation_id"`
	AppID         string          `json:"app_id,omitempty"`
	RawInput      json.RawMessage `json:"raw_input,omitempty"`
	Events        json.RawMessage `json:"events,omitempty"`
	ErrorReason   string          `json:"error_reason"`
	Status        string          `json:"status"`
	RiskScore     int             `json:"risk_score"`
	SourceType    string          `json:"source_type"`
	UserID        string          `json:"user_id,omitempty"`
	RetryCount    int             `json:"retry_count"`
	Signature     string          `json:"signature,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	LastRetryAt   *time.Time      `json:"last_retry_at,omitempty"`
}

// Store is the persistence port for dead-letter entries.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	Pending(ctx context.Context, appID string, limit int) ([]*Entry, error)
	MarkProcessed(ctx context.Context, id string) error
	RecordFailure(ctx context.Context, id, reason string) error
	List(ctx context.Context, limit int) ([]*Entry, error)
}

// Risk score weights. The weights are inherited heuristics, kept as fixed
// constants rather than derived values.
const (
	scoreRedLane            = 50
	scoreHighRiskIntent     = 30
	scoreLowConfidenceVoice = 10
	scoreWebhookSource      = 10
	scoreCap                = 100
)

// Score computes the 0-100 risk score persisted with a dead-letter entry.
func Score(lane models.RiskLane, intents []string, kind models.InputKind, lowConfidence bool) int {
	score := 0
	if lane == models.LaneRed {
		score += scoreRedLane
	}
	if len(intents) > 0 {
		score += scoreHighRiskIntent
	}
	if kind == models.KindVoice && lowConfidence {
		score += scoreLowConfidenceVoice
	}
	if kind == models.KindWebhook {
		score += scoreWebhookSource
	}
	if score > scoreCap {
		score = scoreCap
	}
	return score
}
