package normalizer

import (
	"context"
	"time"

	"github.com/fluxgate-io/fluxgate/internal/models"
)

// TextNormalizer maps typed user messages into canonical events.
type TextNormalizer struct{}

// Supports reports whether this normalizer handles the kind.
func (TextNormalizer) Supports(kind models.InputKind) bool {
	return kind == models.KindText
}

// Normalize builds a canonical user.message event. The message content is
// the surface scanned for high-risk intents.
func (TextNormalizer) Normalize(ctx context.Context, input *models.RawInput) (*models.CanonicalEvent, string, error) {
	_ = ctx
	text := input.Text

	event := &models.CanonicalEvent{
		UserID:    text.UserID,
		Source:    text.Source,
		EventType: "user.message",
		Timestamp: time.Now().UTC(),
		Payload: map[string]any{
			"content": text.Content,
		},
		Metadata: models.EventMetadata{
			RiskLane: models.LaneGreen,
		},
	}

	return event, text.Content, nil
}
