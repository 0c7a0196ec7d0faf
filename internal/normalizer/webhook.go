package normalizer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fluxgate-io/fluxgate/internal/models"
)

// WebhookNormalizer maps provider callbacks into canonical events.
type WebhookNormalizer struct{}

// Supports reports whether this normalizer handles the kind.
func (WebhookNormalizer) Supports(kind models.InputKind) bool {
	return kind == models.KindWebhook
}

// Normalize builds a canonical provider.webhook event. The serialized payload
// is the surface scanned for high-risk intents.
func (WebhookNormalizer) Normalize(ctx context.Context, input *models.RawInput) (*models.CanonicalEvent, string, error) {
	_ = ctx
	hook := input.Webhook

	serialized, err := json.Marshal(hook.Payload)
	if err != nil {
		return nil, "", fmt.Errorf("serialize webhook payload: %w", err)
	}

	event := &models.CanonicalEvent{
		UserID:    hook.UserID,
		Source:    "webhook",
		Provider:  hook.Provider,
		EventType: "provider.webhook",
		Timestamp: time.Now().UTC(),
		Payload:   hook.Payload,
		Metadata: models.EventMetadata{
			RiskLane: models.LaneGreen,
		},
	}

	return event, string(serialized), nil
}
